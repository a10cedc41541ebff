// Package gridv1 defines the wire messages of the grid map service.
//
// The service is served with Connect. Messages are plain structs carried
// by JSONCodec, registered under the "json" codec name on both handlers
// and clients. Byte values are base64 encoded by encoding/json.
package gridv1
