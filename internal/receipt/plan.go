package receipt

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/erazemk/handreceipt/internal/calibration"
	"github.com/erazemk/handreceipt/internal/layout"
)

// Plan is everything an overlay renderer needs to produce one receipt.
type Plan struct {
	FileName    string              `json:"file_name"`
	Custodian   string              `json:"custodian"`
	Header      layout.Header       `json:"header"`
	GeneratedAt time.Time           `json:"generated_at"`
	Profile     calibration.Profile `json:"profile"`
	Rows        []layout.Row        `json:"rows"`
	Pages       []layout.Page       `json:"pages"`
}

// Units returns the number of serials on the receipt.
func (p Plan) Units() int {
	n := 0
	for _, r := range p.Rows {
		n += r.Quantity()
	}
	return n
}

// Digest fingerprints the page instructions. Identical custody state and
// calibration give the same digest regardless of when it was generated.
func (p Plan) Digest() (string, error) {
	data, err := json.Marshal(p.Pages)
	if err != nil {
		return "", fmt.Errorf("encoding pages: %w", err)
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// WritePlan writes the plan as indented JSON.
func WritePlan(w io.Writer, p Plan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("writing plan: %w", err)
	}
	return nil
}

// ReadPlan reads a plan written by WritePlan.
func ReadPlan(r io.Reader) (Plan, error) {
	var p Plan
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return Plan{}, fmt.Errorf("reading plan: %w", err)
	}
	return p, nil
}
