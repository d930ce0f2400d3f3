package workload

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/inference-sim/ranking-sim/sim"
)

// BankFormat is the on-disk encoding of an impression bank.
type BankFormat string

const (
	// BankFormatCBOR is a CBOR sequence: one encoded Impression after another.
	BankFormatCBOR BankFormat = "cbor"
	// BankFormatJSONL is one JSON-encoded Impression per line.
	BankFormatJSONL BankFormat = "jsonl"
)

// FormatFromPath infers the bank format from a file extension.
// ".cbor" selects CBOR; ".jsonl" and ".json" select JSON lines.
func FormatFromPath(path string) (BankFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cbor":
		return BankFormatCBOR, nil
	case ".jsonl", ".json":
		return BankFormatJSONL, nil
	default:
		return "", fmt.Errorf("cannot infer bank format from %q (want .cbor or .jsonl)", path)
	}
}

// decoder is the subset shared by cbor.Decoder and json.Decoder.
type decoder interface {
	Decode(v any) error
}

// BankReader streams impressions from an impression bank. It holds at most
// one decoded impression at a time.
type BankReader struct {
	dec   decoder
	count int
}

// NewBankReader creates a reader over r in the given format.
func NewBankReader(r io.Reader, format BankFormat) (*BankReader, error) {
	switch format {
	case BankFormatCBOR:
		return &BankReader{dec: cbor.NewDecoder(r)}, nil
	case BankFormatJSONL:
		return &BankReader{dec: json.NewDecoder(r)}, nil
	default:
		return nil, fmt.Errorf("unknown bank format %q", format)
	}
}

// Next implements sim.ImpressionSource. Returns io.EOF at a clean end of input.
func (b *BankReader) Next() (*sim.Impression, error) {
	var imp sim.Impression
	if err := b.dec.Decode(&imp); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("decoding impression #%d: %w", b.count, err)
	}
	if err := imp.Validate(); err != nil {
		return nil, fmt.Errorf("bank impression #%d: %w", b.count, err)
	}
	b.count++
	return &imp, nil
}

// WriteBank drains src into w in the given format and returns the number of
// impressions written. src must be bounded.
func WriteBank(w io.Writer, src sim.ImpressionSource, format BankFormat) (int, error) {
	var enc interface{ Encode(v any) error }
	switch format {
	case BankFormatCBOR:
		enc = cbor.NewEncoder(w)
	case BankFormatJSONL:
		enc = json.NewEncoder(w)
	default:
		return 0, fmt.Errorf("unknown bank format %q", format)
	}

	n := 0
	for {
		imp, err := src.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if err := enc.Encode(imp); err != nil {
			return n, fmt.Errorf("encoding impression %d: %w", imp.ImpID, err)
		}
		n++
	}
}
