package internaldefs

import (
	goCrud "github.com/MrEthical07/goCrud"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   goCrud.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   goCrud.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: goCrud.MetricUserCreated, Name: "gocrud_user_created_total", Help: "Users created."},
	{ID: goCrud.MetricUserCreateDuplicate, Name: "gocrud_user_create_duplicate_total", Help: "User creations refused because the email is taken."},
	{ID: goCrud.MetricLoginSuccess, Name: "gocrud_login_success_total", Help: "Successful logins."},
	{ID: goCrud.MetricLoginFailure, Name: "gocrud_login_failure_total", Help: "Failed logins."},
	{ID: goCrud.MetricLoginRateLimited, Name: "gocrud_login_rate_limited_total", Help: "Logins refused by the throttle."},
	{ID: goCrud.MetricLogout, Name: "gocrud_logout_total", Help: "Logouts."},
	{ID: goCrud.MetricUserUpdated, Name: "gocrud_user_updated_total", Help: "User updates."},
	{ID: goCrud.MetricUserDeleted, Name: "gocrud_user_deleted_total", Help: "User deletions."},
	{ID: goCrud.MetricCSRFIssued, Name: "gocrud_csrf_issued_total", Help: "CSRF tokens issued."},
	{ID: goCrud.MetricCSRFRejected, Name: "gocrud_csrf_rejected_total", Help: "Requests refused for a missing or invalid CSRF token."},
	{ID: goCrud.MetricGroupCreated, Name: "gocrud_group_created_total", Help: "Groups created."},
	{ID: goCrud.MetricGroupMemberAdded, Name: "gocrud_group_member_added_total", Help: "Group members added."},
	{ID: goCrud.MetricGroupDeleted, Name: "gocrud_group_deleted_total", Help: "Groups deleted."},
	{ID: goCrud.MetricGrantCreated, Name: "gocrud_grant_created_total", Help: "Authorization grants created."},
	{ID: goCrud.MetricGrantUpdated, Name: "gocrud_grant_updated_total", Help: "Authorization grants updated."},
	{ID: goCrud.MetricGrantDeleted, Name: "gocrud_grant_deleted_total", Help: "Authorization grants deleted."},
	{ID: goCrud.MetricCASConflict, Name: "gocrud_cas_conflict_total", Help: "Writes refused because the record changed concurrently."},
	{ID: goCrud.MetricStoreUnavailable, Name: "gocrud_store_unavailable_total", Help: "Operations failed by the backing store."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goCrud.MetricOperationLatency, Name: "gocrud_operation_latency_seconds", Help: "Engine operation latency histogram."},
}

// HistogramBounds are the upper bounds of the latency buckets in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero-filling
// missing buckets.
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
