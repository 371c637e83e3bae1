package audit

import (
	"bytes"
	"testing"
)

func FuzzVerifyReader(f *testing.F) {
	valid, err := EncodeChain(FromSteps("run-fuzz", "sha256:p", sampleTrace()))
	if err != nil {
		f.Fatal(err)
	}
	f.Add(valid)
	f.Add([]byte{})
	f.Add([]byte(`{"prev_hash":"` + GenesisHash + `"}` + "\n"))
	f.Add([]byte("not json"))

	f.Fuzz(func(t *testing.T, data []byte) {
		res := VerifyReader(bytes.NewReader(data))
		if res.Valid && res.Error != "" {
			t.Fatalf("valid result carries an error: %+v", res)
		}
		if !res.Valid && res.Error == "" {
			t.Fatalf("invalid result without a reason: %+v", res)
		}
		// Same input, same verdict.
		if res.Valid && VerifyReader(bytes.NewReader(data)) != res {
			t.Fatal("verification is not deterministic")
		}
	})
}
