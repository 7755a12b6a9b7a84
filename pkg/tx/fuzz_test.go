package tx

import "testing"

// FuzzDecode tests that arbitrary bytes do not panic the decoder, and that
// anything it accepts can be re-encoded and hashed.
func FuzzDecode(f *testing.F) {
	tx := testTx()
	if raw, err := tx.Serialize(); err == nil {
		f.Add(raw)
	}
	f.Add([]byte{0x84, 0xa0, 0xa0, 0xf5, 0xf6})
	f.Add([]byte{0x80})
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		decoded, err := Decode(data)
		if err != nil {
			return
		}
		// May fail but must not panic.
		decoded.Hash()
		decoded.Serialize()
		decoded.ValidateStructure()
		decoded.VerifySignatures()
	})
}
