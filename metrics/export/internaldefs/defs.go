package internaldefs

import (
	"math"

	goQuiz "github.com/MrEthical07/goQuiz"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   goQuiz.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram for exporters.
type HistogramDef struct {
	ID   goQuiz.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter.
var CounterDefs = []CounterDef{
	{ID: goQuiz.MetricRegisterSuccess, Name: "goquiz_register_success_total", Help: "Accounts created."},
	{ID: goQuiz.MetricRegisterDuplicate, Name: "goquiz_register_duplicate_total", Help: "Registrations rejected for a taken email."},
	{ID: goQuiz.MetricLoginSuccess, Name: "goquiz_login_success_total", Help: "Successful login attempts."},
	{ID: goQuiz.MetricLoginFailure, Name: "goquiz_login_failure_total", Help: "Failed login attempts."},
	{ID: goQuiz.MetricLoginRateLimited, Name: "goquiz_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: goQuiz.MetricRefreshSuccess, Name: "goquiz_refresh_success_total", Help: "Successful refresh token rotations."},
	{ID: goQuiz.MetricRefreshFailure, Name: "goquiz_refresh_failure_total", Help: "Refreshes rejected for a missing or invalid token."},
	{ID: goQuiz.MetricRefreshReuseDetected, Name: "goquiz_refresh_reuse_detected_total", Help: "Presentations of an already rotated refresh token."},
	{ID: goQuiz.MetricLogout, Name: "goquiz_logout_total", Help: "Logout operations."},
	{ID: goQuiz.MetricPasswordChangeSuccess, Name: "goquiz_password_change_success_total", Help: "Successful password changes."},
	{ID: goQuiz.MetricPasswordChangeInvalidOld, Name: "goquiz_password_change_invalid_old_total", Help: "Password changes with a wrong current password."},
	{ID: goQuiz.MetricQuizSessionStarted, Name: "goquiz_session_started_total", Help: "Quiz sessions started."},
	{ID: goQuiz.MetricQuizSessionFinished, Name: "goquiz_session_finished_total", Help: "Quiz sessions finished."},
	{ID: goQuiz.MetricAnswerCorrect, Name: "goquiz_answer_correct_total", Help: "Correct answer submissions."},
	{ID: goQuiz.MetricAnswerIncorrect, Name: "goquiz_answer_incorrect_total", Help: "Incorrect answer submissions."},
	{ID: goQuiz.MetricSubmitConflict, Name: "goquiz_submit_conflict_total", Help: "Submissions that lost the race for a session cursor."},
}

// HistogramDefs lists every exported latency histogram.
var HistogramDefs = []HistogramDef{
	{ID: goQuiz.MetricValidateLatency, Name: "goquiz_validate_latency_seconds", Help: "Bearer token validation latency."},
	{ID: goQuiz.MetricSubmitLatency, Name: "goquiz_submit_latency_seconds", Help: "Answer submission latency."},
}

// HistogramUpperBounds are the bucket bounds in seconds. The last bucket is
// unbounded.
var HistogramUpperBounds = [8]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, math.Inf(1)}

// HistogramBoundSuffix names each bucket in flat exporters such as OTel
// gauges.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw snapshot buckets to eight entries.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
