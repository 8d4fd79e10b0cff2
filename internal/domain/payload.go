package domain

// PayloadKind discriminates the rendered payload union.
type PayloadKind int

const (
	PayloadText PayloadKind = iota
	PayloadAudio
)

// Payload is the rendered result of a webhook reply: either display text
// or a binary audio artifact to send as a file. Produced by the renderer,
// consumed exactly once by the delivery policy or the audio-send path.
type Payload struct {
	Kind     PayloadKind
	Text     string
	Audio    []byte
	Filename string
}

// TextPayload wraps display text.
func TextPayload(text string) Payload {
	return Payload{Kind: PayloadText, Text: text}
}

// AudioPayload wraps decoded audio bytes with a filename.
func AudioPayload(data []byte, filename string) Payload {
	return Payload{Kind: PayloadAudio, Audio: data, Filename: filename}
}
