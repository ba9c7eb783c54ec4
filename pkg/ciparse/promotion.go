package ciparse

import "strings"

const (
	promotionPatchSetPrefix = "Patch Set "
	promotionPrefixSep      = ":\n\n"

	promotionSuccessLead = "Promotion review "
	promotionSuccessTail = " has brought into alpha channel"

	promotionFailurePreamble = "PROMOTION FAILURE\n\n" +
		"Promotion of artifacts from this change into Alpha channel has failed"
)

// ParsePromotionSuccess reports whether the text starts with the fixed
// promotion-success preamble, optionally preceded by a patch-set prefix.
// It is a pure presence test; no fields are extracted.
func ParsePromotionSuccess(text string) bool {
	rest := cutPatchSetPrefix(text)

	rest, found := strings.CutPrefix(rest, promotionSuccessLead)
	if !found {
		return false
	}

	// The review reference and the fixed tail must sit on the preamble line.
	line := rest
	if nl := strings.IndexByte(line, '\n'); nl >= 0 {
		line = line[:nl]
	}

	return strings.Index(line, promotionSuccessTail) > 0
}

// ParsePromotionFailure reports whether the text starts with the fixed
// promotion-failure preamble, optionally preceded by a patch-set prefix.
func ParsePromotionFailure(text string) bool {
	rest := cutPatchSetPrefix(text)

	return strings.HasPrefix(rest, promotionFailurePreamble)
}

// cutPatchSetPrefix consumes an optional "Patch Set <n>:\n\n" prefix.
// When the prefix shape is incomplete, the text is returned unchanged so the
// preamble match starts from the beginning.
func cutPatchSetPrefix(text string) string {
	rest, found := strings.CutPrefix(text, promotionPatchSetPrefix)
	if !found {
		return text
	}

	digits, rest := cutDigits(rest)
	if digits == "" {
		return text
	}

	rest, found = strings.CutPrefix(rest, promotionPrefixSep)
	if !found {
		return text
	}

	return rest
}
