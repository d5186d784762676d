package types

// Action is the verdict of the external decision source.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Decision is the opaque decision source's reply for one instrument on one
// day. The engine never inspects how it was produced.
type Decision struct {
	Action     Action  `yaml:"action" json:"action"`
	Confidence float64 `yaml:"confidence" json:"confidence"`
	StopLoss   float64 `yaml:"stop_loss" json:"stop_loss"`
	Target     float64 `yaml:"target" json:"target"`
	Rationale  string  `yaml:"rationale" json:"rationale"`
}

// Hold is the neutral decision used when the collaborator fails or declines.
func Hold() Decision {
	return Decision{
		Action:     ActionHold,
		Confidence: 0,
		StopLoss:   0,
		Target:     0,
		Rationale:  "",
	}
}
