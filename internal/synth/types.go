package synth

import "time"

type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Citation is a web source behind an answer. Two citations are the same
// source when their URLs match.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Turn is one immutable entry of a conversation log.
type Turn struct {
	ID        string     `json:"id"`
	Speaker   Speaker    `json:"speaker"`
	Text      string     `json:"text"`
	Timestamp time.Time  `json:"timestamp"`
	Citations []Citation `json:"citations,omitempty"`
}

// Result is a decoded model answer. Citations is never nil.
type Result struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations"`
}
