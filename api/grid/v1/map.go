package gridv1

// ServiceName is the fully-qualified name of the map service.
const ServiceName = "gridsession.grid.v1.MapService"

// Procedure paths.
const (
	GetProcedure     = "/" + ServiceName + "/Get"
	SetProcedure     = "/" + ServiceName + "/Set"
	DeleteProcedure  = "/" + ServiceName + "/Delete"
	ClearProcedure   = "/" + ServiceName + "/Clear"
	SizeProcedure    = "/" + ServiceName + "/Size"
	ValuesProcedure  = "/" + ServiceName + "/Values"
	MembersProcedure = "/" + ServiceName + "/Members"
)

// KeyRequest addresses one entry. Used by Get and Delete.
type KeyRequest struct {
	Map string `json:"map"`
	Key string `json:"key"`
}

// GetResponse carries a value. Found distinguishes an empty value from an
// absent one.
type GetResponse struct {
	Found bool   `json:"found"`
	Value []byte `json:"value,omitempty"`
}

// SetRequest stores one entry. TTLMillis <= 0 stores it without expiry.
type SetRequest struct {
	Map       string `json:"map"`
	Key       string `json:"key"`
	Value     []byte `json:"value"`
	TTLMillis int64  `json:"ttl_ms,omitempty"`
}

// MapRequest addresses a whole map. Used by Clear, Size and Values.
type MapRequest struct {
	Map string `json:"map"`
}

// Empty is the response of calls without a result.
type Empty struct{}

// SizeResponse is the response of Size.
type SizeResponse struct {
	Size int64 `json:"size"`
}

// ValuesResponse is the response of Values.
type ValuesResponse struct {
	Values [][]byte `json:"values"`
}

// MembersRequest is the request of Members.
type MembersRequest struct{}

// Member is one node serving the map service.
type Member struct {
	ID   string `json:"id"`
	Addr string `json:"addr"`
}

// MembersResponse lists the live members as seen by the answering node.
type MembersResponse struct {
	Members []Member `json:"members"`
}
