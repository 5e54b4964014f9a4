package server

// Inbound client frames. The room identifier never appears here; it travels
// in the websocket URL path.

const (
	inboundChat   = "chat"
	inboundTyping = "typing"
	inboundVoice  = "voice"
	inboundLeave  = "leave"
)

// joinFrame must be the first frame on a fresh connection.
type joinFrame struct {
	ParticipantID string `json:"participant_id" validate:"required,max=64"`
	Language      string `json:"language" validate:"required,min=2,max=8"`
	Name          string `json:"name" validate:"omitempty,max=64"`
	Token         string `json:"token"`
}

// inboundFrame is every post-handshake client frame. Which fields matter
// depends on Type.
type inboundFrame struct {
	Type      string `json:"type" validate:"required"`
	Content   string `json:"content"`
	IsTyping  bool   `json:"is_typing"`
	AudioData string `json:"audio_data"`
	Mime      string `json:"mime"`
}
