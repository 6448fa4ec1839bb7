// Package frame defines the decoded frame record produced by the decoder
// task and the line format used to emit it on the output sink.
package frame

// Type identifies the kind of frame observed on the carrier.
type Type int

const (
	CarrierOff Type = iota
	CarrierOn
	Poll   // reader to card
	Listen // card to reader
)

// Label returns the output label for the frame type.
func (t Type) Label() string {
	switch t {
	case CarrierOff:
		return "CarrierOff"
	case CarrierOn:
		return "CarrierOn"
	case Poll:
		return "PCD->PICC"
	case Listen:
		return "PICC->PCD"
	default:
		return "Unknown"
	}
}

// IsData reports whether the frame carries payload bytes. Carrier on/off
// frames print only the time and type prefix.
func (t Type) IsData() bool {
	return t == Poll || t == Listen
}

// Tech identifies the NFC technology a data frame was decoded as.
type Tech int

const (
	TechNone Tech = iota
	TechNfcA
	TechNfcB
	TechNfcF
	TechNfcV
)

// Label returns the output label for the technology.
func (t Tech) Label() string {
	switch t {
	case TechNfcA:
		return "NfcA"
	case TechNfcB:
		return "NfcB"
	case TechNfcF:
		return "NfcF"
	case TechNfcV:
		return "NfcV"
	default:
		return "None"
	}
}

// Record is one decoded frame. It is produced once by the decoder task,
// immutable thereafter, and consumed exactly once by the drain step.
type Record struct {
	// TimeStart is seconds since capture start.
	TimeStart float64
	// Type is the frame kind.
	Type Type
	// Tech is the decoded technology, TechNone for carrier frames.
	Tech Tech
	// BitRate is the bit rate class in bits per second.
	BitRate int
	// Payload holds the raw frame bytes.
	Payload []byte
}

// Size returns the payload byte count.
func (r Record) Size() int {
	return len(r.Payload)
}
