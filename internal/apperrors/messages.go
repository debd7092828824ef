package apperrors

import (
	"fmt"
	"time"
)

var validationMessages = map[string]string{
	"empty":            "Please enter a statement.",
	"too_short":        "Statement is too short. Please add more detail.",
	"too_long":         "Statement is too long. Please be more concise.",
	"invalid_chars":    "Please check your statement format.",
	"identical":        "Please restate the position in your own words.",
	"low_similarity":   "Your restatement seems to miss key points of the original.",
	"quota_exceeded":   "You have used all of your statements for this discussion.",
	"not_constructive": "Please ensure your statement is constructive and solution-focused.",
	"not_confirmed":    "The restatement has not been confirmed as accurate yet.",
	"own_statement":    "You can't restate your own statement.",
	"incomplete":       "The discussion still needs more statements.",
	"empty_response":   "The analysis service returned no result. Please try again.",
	"invalid_response": "The analysis service returned an unexpected result. Please try again.",
}

// UserMessage returns text suitable for showing to a participant.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindValidation:
		if msg, ok := validationMessages[CodeOf(err)]; ok {
			return msg
		}
		return "Please check your input."
	case KindRateLimit:
		if wait := RetryAfter(err); wait > 0 {
			return fmt.Sprintf("Please wait %s before trying again.", wait.Round(time.Second))
		}
		return "Please wait a moment before trying again."
	case KindContentPolicy:
		return "The statement was flagged by the content policy. Please rephrase it."
	case KindPermission:
		return "The analysis service is not configured correctly."
	case KindRetryExhausted, KindProvider:
		return "The analysis service is unavailable. Your progress has been saved, you can resume later."
	case KindState:
		return "Progress could not be saved. You can continue, but resuming may not be possible."
	default:
		return "An unexpected error occurred."
	}
}
