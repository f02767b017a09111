// Package protocol defines the wire request/response shapes described in
// §6.3 and the streaming codec they share with the engine's own record
// format: self-delimiting JSON objects concatenated with no separators.
package protocol

import (
	"encoding/json"
	"io"
)

type requestKind string

const (
	KindGet    requestKind = "get"
	KindSet    requestKind = "set"
	KindRemove requestKind = "rm"
)

// Request is one decoded wire request. Value is only meaningful for Set.
type Request struct {
	Type  requestKind `json:"type"`
	Key   string      `json:"key"`
	Value string      `json:"value,omitempty"`
}

// Response is the reply to exactly one Request, tagged with the same Type
// so a client doesn't need to track which request a response answers.
// Value is a pointer so a Get response can distinguish "key absent"
// (nil, §6.3's Ok(null)) from "key present with the empty string" (non-nil,
// pointing at "").
type Response struct {
	Type  requestKind `json:"type"`
	OK    bool        `json:"ok"`
	Value *string     `json:"value,omitempty"`
	Error string      `json:"error,omitempty"`
}

func GetRequest(key string) Request { return Request{Type: KindGet, Key: key} }

func SetRequest(key, value string) Request {
	return Request{Type: KindSet, Key: key, Value: value}
}

func RemoveRequest(key string) Request { return Request{Type: KindRemove, Key: key} }

// GetOK reports a successful Get. found distinguishes "key absent" from
// "key present with this value" the way §6.3's Ok(null)/Ok(value) pair does.
func GetOK(value string, found bool) Response {
	if !found {
		return Response{Type: KindGet, OK: true}
	}
	return Response{Type: KindGet, OK: true, Value: &value}
}

func GetErr(msg string) Response    { return Response{Type: KindGet, OK: false, Error: msg} }
func SetOK() Response               { return Response{Type: KindSet, OK: true} }
func SetErr(msg string) Response    { return Response{Type: KindSet, OK: false, Error: msg} }
func RemoveOK() Response            { return Response{Type: KindRemove, OK: true} }
func RemoveErr(msg string) Response { return Response{Type: KindRemove, OK: false, Error: msg} }

// Decoder streams concatenated Requests (or Responses) off r, mirroring the
// kv package's own recordDecoder: encoding/json.Decoder already stops at
// the boundary of one JSON value, so nothing else is needed to make this
// self-delimiting.
type Decoder struct {
	dec *json.Decoder
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: json.NewDecoder(r)}
}

// DecodeRequest reads the next request. A clean io.EOF between requests
// means the peer closed the connection; anything else is a Protocol error
// and the connection must be terminated.
func (d *Decoder) DecodeRequest(req *Request) error {
	return d.dec.Decode(req)
}

// DecodeResponse reads the next response, for clients.
func (d *Decoder) DecodeResponse(resp *Response) error {
	return d.dec.Decode(resp)
}

// Encoder writes framed Responses (or Requests, from a client) to w.
type Encoder struct {
	enc *json.Encoder
	w   io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: json.NewEncoder(w), w: w}
}

func (e *Encoder) EncodeResponse(resp Response) error {
	return e.enc.Encode(resp)
}

func (e *Encoder) EncodeRequest(req Request) error {
	return e.enc.Encode(req)
}

// Flush exposes the underlying writer's Flush when it's buffered, so
// callers that wrap a net.Conn in a bufio.Writer can force bytes onto the
// wire after each response, matching the flush-before-return discipline
// used by the engine's own appends.
func (e *Encoder) Flush() error {
	if f, ok := e.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}
