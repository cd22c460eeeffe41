// Package notify renders the daily status message. It does no I/O.
package notify

import "fmt"

// Callback data carried by inline buttons and recognised by the dispatcher.
const (
	ActionStartRelation = "start_relation"
	ActionBreakup       = "breakup"
	ActionBreakupYes    = "breakup_yes"
	ActionBreakupNo     = "breakup_no"
)

// Milestones maps a day number to the annotation appended on that exact day.
var Milestones = map[int]string{
	10:  "💖 10 days together, and this is only the beginning!",
	20:  "🔥 20 days in a relationship! Keep going?",
	50:  "🔥 50 days together! Getting serious!",
	100: "🎉 100 days together! Wow!",
	150: "🎉 150 days together! Maybe it's time to stop?",
}

// Button is one inline keyboard button; Data is the callback action.
type Button struct {
	Label string
	Data  string
}

// Message is a rendered day update. PhotoURL is set on milestone days only.
type Message struct {
	Text     string
	PhotoURL string
	Buttons  []Button
}

// Composer renders day messages. PhotoURL, when set, is attached on milestone days.
type Composer struct {
	PhotoURL string
}

// Compose builds the message for day. The breakup button is always attached.
func (c Composer) Compose(day int) Message {
	msg := Message{
		Text:    fmt.Sprintf("Day %d: still together", day),
		Buttons: []Button{{Label: "💔 We broke up", Data: ActionBreakup}},
	}
	if note, ok := Milestones[day]; ok {
		msg.Text += "\n\n" + note
		msg.PhotoURL = c.PhotoURL
	}
	return msg
}

// Compose renders day without a milestone photo.
func Compose(day int) Message {
	return Composer{}.Compose(day)
}
