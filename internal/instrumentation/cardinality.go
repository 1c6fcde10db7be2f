package instrumentation

import "strings"

// Backend operation label values. Keeping the set closed bounds the
// cardinality of backend_api_* series.
const (
	OperationSearchUsers  = "search_users"
	OperationGetSchedule  = "get_schedule"
	OperationFreeBusy     = "freebusy"
	OperationListRooms    = "list_rooms"
	OperationMeetingTimes = "find_meeting_times"
	OperationBook         = "book"
	OperationMe           = "me"
)

// ExtractUserDomain returns the domain of an email address, or "unknown".
// Use it instead of the full address wherever a label or a general log
// line needs to identify a user.
//
//	ExtractUserDomain("jane@example.com") // "example.com"
//	ExtractUserDomain("invalid")          // "unknown"
func ExtractUserDomain(email string) string {
	_, domain, ok := strings.Cut(email, "@")
	if !ok || domain == "" || strings.Contains(domain, "@") {
		return "unknown"
	}
	return strings.ToLower(domain)
}
