package config

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"git.home.luguber.info/inful/fwbuilder/internal/foundation/normalization"
)

var outputEncodings = normalization.NewNormalizer("output encoding", map[string]encoding.Encoding{
	"utf-8":        unicode.UTF8,
	"utf8":         unicode.UTF8,
	"cp437":        charmap.CodePage437,
	"ibm437":       charmap.CodePage437,
	"cp850":        charmap.CodePage850,
	"ibm850":       charmap.CodePage850,
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
}, unicode.UTF8)

// Encoding returns the decoder for the shell output encoding. It returns nil
// for UTF-8, which needs no decoding.
func (s ShellConfig) Encoding() (encoding.Encoding, error) {
	enc, err := outputEncodings.Parse(s.OutputEncoding)
	if err != nil || enc == unicode.UTF8 {
		return nil, err
	}
	return enc, nil
}
