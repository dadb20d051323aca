// Package voicecmd turns recognized speech into spoken replies.
//
// A fixed keyword table maps three drink requests to preset replies. The
// Dispatcher receives ASR text, picks the first matching keyword, asks the
// robot to speak the reply, and waits for playback.
package voicecmd

import (
	"fmt"
	"strings"
)

// Option identifies a matched voice command.
type Option int

const (
	OptionNone  Option = 0
	OptionMilk  Option = 1
	OptionJuice Option = 2
	OptionSoda  Option = 3
)

// keywords is checked in order; the first hit wins.
var keywords = []struct {
	option  Option
	keyword string
}{
	{OptionMilk, "牛奶"},
	{OptionJuice, "果汁"},
	{OptionSoda, "汽水"},
}

// Detect returns the first option whose keyword occurs in text, or
// OptionNone. Matching is case-sensitive substring containment.
func Detect(text string) Option {
	for _, k := range keywords {
		if strings.Contains(text, k.keyword) {
			return k.option
		}
	}
	return OptionNone
}

// Keyword returns the trigger substring for o.
func (o Option) Keyword() string {
	for _, k := range keywords {
		if k.option == o {
			return k.keyword
		}
	}
	return ""
}

// Valid reports whether o is one of the three commands.
func (o Option) Valid() bool {
	return o >= OptionMilk && o <= OptionSoda
}

// String returns a stable label, used in logs and metrics.
func (o Option) String() string {
	switch o {
	case OptionNone:
		return "none"
	case OptionMilk:
		return "milk"
	case OptionJuice:
		return "juice"
	case OptionSoda:
		return "soda"
	default:
		return fmt.Sprintf("option(%d)", int(o))
	}
}

// ParseOption accepts exactly "1", "2" or "3".
func ParseOption(s string) (Option, bool) {
	switch s {
	case "1":
		return OptionMilk, true
	case "2":
		return OptionJuice, true
	case "3":
		return OptionSoda, true
	default:
		return OptionNone, false
	}
}

// Keywords lists the trigger substrings in priority order.
func Keywords() []string {
	out := make([]string, len(keywords))
	for i, k := range keywords {
		out[i] = k.keyword
	}
	return out
}
