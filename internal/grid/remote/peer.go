package remote

import (
	"connectrpc.com/connect"

	gridv1 "github.com/yndnr/gridsession-go/api/grid/v1"
)

// peer holds the typed procedure clients of one node.
type peer struct {
	baseURL string
	get     *connect.Client[gridv1.KeyRequest, gridv1.GetResponse]
	set     *connect.Client[gridv1.SetRequest, gridv1.Empty]
	del     *connect.Client[gridv1.KeyRequest, gridv1.Empty]
	clear   *connect.Client[gridv1.MapRequest, gridv1.Empty]
	size    *connect.Client[gridv1.MapRequest, gridv1.SizeResponse]
	values  *connect.Client[gridv1.MapRequest, gridv1.ValuesResponse]
	members *connect.Client[gridv1.MembersRequest, gridv1.MembersResponse]
}

func newPeer(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *peer {
	return &peer{
		baseURL: baseURL,
		get:     connect.NewClient[gridv1.KeyRequest, gridv1.GetResponse](httpClient, baseURL+gridv1.GetProcedure, opts...),
		set:     connect.NewClient[gridv1.SetRequest, gridv1.Empty](httpClient, baseURL+gridv1.SetProcedure, opts...),
		del:     connect.NewClient[gridv1.KeyRequest, gridv1.Empty](httpClient, baseURL+gridv1.DeleteProcedure, opts...),
		clear:   connect.NewClient[gridv1.MapRequest, gridv1.Empty](httpClient, baseURL+gridv1.ClearProcedure, opts...),
		size:    connect.NewClient[gridv1.MapRequest, gridv1.SizeResponse](httpClient, baseURL+gridv1.SizeProcedure, opts...),
		values:  connect.NewClient[gridv1.MapRequest, gridv1.ValuesResponse](httpClient, baseURL+gridv1.ValuesProcedure, opts...),
		members: connect.NewClient[gridv1.MembersRequest, gridv1.MembersResponse](httpClient, baseURL+gridv1.MembersProcedure, opts...),
	}
}
