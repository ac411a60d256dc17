package tier

import (
	"net/http"
	"strconv"
)

// HeaderDetector parses a provider's HTTP response headers into a
// TierConfig, when that response carries rate-limit signals. Detect
// reports ok=false when headers carries no recognizable signal for this
// detector. Kept pluggable (rather than hardcoding one vendor's headers)
// since the exact set of response headers to parse is vendor-specific and
// this codebase targets three.
type HeaderDetector interface {
	Name() string
	Detect(headers http.Header) (*TierConfig, bool)
}

// AnthropicHeaderDetector reads anthropic-ratelimit-requests-limit and
// anthropic-ratelimit-tokens-limit.
type AnthropicHeaderDetector struct{}

func (AnthropicHeaderDetector) Name() string { return "anthropic" }

func (AnthropicHeaderDetector) Detect(h http.Header) (*TierConfig, bool) {
	rpm, rpmOK := parseIntHeader(h, "anthropic-ratelimit-requests-limit")
	tpm, tpmOK := parseIntHeader(h, "anthropic-ratelimit-tokens-limit")
	if !rpmOK && !tpmOK {
		return nil, false
	}
	tc := &TierConfig{NameValue: "detected-anthropic"}
	if rpmOK {
		tc.RPMValue = &rpm
	}
	if tpmOK {
		tc.TPMValue = &tpm
	}
	return tc, true
}

// OpenAIHeaderDetector reads x-ratelimit-limit-requests and
// x-ratelimit-limit-tokens.
type OpenAIHeaderDetector struct{}

func (OpenAIHeaderDetector) Name() string { return "openai" }

func (OpenAIHeaderDetector) Detect(h http.Header) (*TierConfig, bool) {
	rpm, rpmOK := parseIntHeader(h, "x-ratelimit-limit-requests")
	tpm, tpmOK := parseIntHeader(h, "x-ratelimit-limit-tokens")
	if !rpmOK && !tpmOK {
		return nil, false
	}
	tc := &TierConfig{NameValue: "detected-openai"}
	if rpmOK {
		tc.RPMValue = &rpm
	}
	if tpmOK {
		tc.TPMValue = &tpm
	}
	return tc, true
}

// GenericHeaderDetector reads the plain x-ratelimit-limit convention used
// by several REST APIs as a fallback when no vendor-specific header is
// present.
type GenericHeaderDetector struct{}

func (GenericHeaderDetector) Name() string { return "generic" }

func (GenericHeaderDetector) Detect(h http.Header) (*TierConfig, bool) {
	rpm, ok := parseIntHeader(h, "x-ratelimit-limit")
	if !ok {
		return nil, false
	}
	return &TierConfig{NameValue: "detected-generic", RPMValue: &rpm}, true
}

func parseIntHeader(h http.Header, key string) (int, bool) {
	v := h.Get(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ChainDetector tries each detector in order and returns the first hit.
type ChainDetector struct {
	Detectors []HeaderDetector
}

// DefaultDetectors returns the three vendor conventions this codebase
// targets, generic last.
func DefaultDetectors() []HeaderDetector {
	return []HeaderDetector{AnthropicHeaderDetector{}, OpenAIHeaderDetector{}, GenericHeaderDetector{}}
}

func (c ChainDetector) Detect(h http.Header) (*TierConfig, bool) {
	for _, d := range c.Detectors {
		if tc, ok := d.Detect(h); ok {
			return tc, true
		}
	}
	return nil, false
}
