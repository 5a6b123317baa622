package proto

import "testing"

func TestParseNick(t *testing.T) {
	tests := []struct {
		input   string
		wantOK  bool
		wantOut string
	}{
		{"wiz", true, "wiz"},
		{"a", true, "a"},
		{"a2345678", true, "a2345678"},
		{"", false, ""},
		{"tfpkasdfasdfasdf", false, ""},
		{"1abc", false, ""},
		{"wiz!", false, ""},
	}

	for _, test := range tests {
		got, err := ParseNick(test.input)
		if test.wantOK && err != nil {
			t.Errorf("ParseNick(%q) = error %s, wanted %s", test.input, err, test.wantOut)
			continue
		}
		if !test.wantOK && err == nil {
			t.Errorf("ParseNick(%q) = %s, wanted error", test.input, got)
			continue
		}
		if test.wantOK && string(got) != test.wantOut {
			t.Errorf("ParseNick(%q) = %s, wanted %s", test.input, got, test.wantOut)
		}
	}
}

func TestParseChannel(t *testing.T) {
	tests := []struct {
		input  string
		wantOK bool
	}{
		{"#channel", true},
		{"#a", true},
		{"channel", false},
		{"#", true},
		{"", false},
	}

	for _, test := range tests {
		_, err := ParseChannel(test.input)
		if test.wantOK != (err == nil) {
			t.Errorf("ParseChannel(%q) ok=%v, wanted %v", test.input, err == nil, test.wantOK)
		}
	}
}

func TestParsePluginName(t *testing.T) {
	tests := []struct {
		input  string
		wantOK bool
	}{
		{"/example", true},
		{"/remind", true},
		{"example", false},
		{"/", true},
		{"", false},
	}

	for _, test := range tests {
		_, err := ParsePluginName(test.input)
		if test.wantOK != (err == nil) {
			t.Errorf("ParsePluginName(%q) ok=%v, wanted %v", test.input, err == nil, test.wantOK)
		}
	}
}

func TestParseTarget(t *testing.T) {
	ch := ParseTarget("#channel")
	if !ch.IsChannel() || ch.Channel() != "#channel" {
		t.Errorf("ParseTarget(#channel) = %+v, wanted channel target", ch)
	}

	user := ParseTarget("wiz")
	if user.IsChannel() || user.User() != "wiz" {
		t.Errorf("ParseTarget(wiz) = %+v, wanted user target", user)
	}
}
