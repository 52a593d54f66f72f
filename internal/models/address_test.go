package models

import "testing"

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Address
	}{
		{
			name:  "lower case hex is checksummed",
			input: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
			want:  "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		},
		{
			name:  "upper case hex is checksummed",
			input: "0xFB6916095CA1DF60BB79CE92CE3EA74C37C5D359",
			want:  "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		},
		{
			name:  "already checksummed",
			input: "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
			want:  "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		},
		{
			name:  "surrounding space",
			input: "  0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb\n",
			want:  "0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
		},
		{name: "opaque token", input: "landlord", want: "landlord"},
		{name: "short hex stays opaque", input: "0xabc", want: "0xabc"},
		{name: "empty", input: "", want: NoAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseAddress(tt.input); got != tt.want {
				t.Errorf("ParseAddress(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestAddressIsZero(t *testing.T) {
	if !NoAddress.IsZero() {
		t.Error("NoAddress should be zero")
	}
	if Address("tenant").IsZero() {
		t.Error("non-empty address should not be zero")
	}
}

func TestStateLabels(t *testing.T) {
	for s := StateEmpty; s <= StateEnded; s++ {
		parsed, err := ParseState(s.String())
		if err != nil || parsed != s {
			t.Errorf("ParseState(%q) = %v, %v", s.String(), parsed, err)
		}
	}
	if StateCreated.Description() != "Created - Pending deposit payment" {
		t.Errorf("unexpected description %q", StateCreated.Description())
	}
	if State(9).String() != "State(9)" {
		t.Errorf("unexpected out of range name %q", State(9).String())
	}
}
