// Package ipc defines the JSON wire protocol spoken over the session
// manager's Unix domain socket and the server loop that answers it.
// Grounded on original_source/src/common/transport/{request.rs,
// response.rs,encoder.rs}: requests and responses are tagged unions
// carrying a discriminator ("request"/"response") alongside a "content"
// payload, translated here as Go structs with a Kind field and
// MarshalJSON/UnmarshalJSON implementing the same two-key shape.
package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/illgrenoble/webx-session-manager/internal/session"
)

// RequestKind discriminates the variants of Request.
type RequestKind string

const (
	RequestLogin  RequestKind = "login"
	RequestWho    RequestKind = "who"
	RequestLogout RequestKind = "logout"
)

// ResponseKind discriminates the variants of Response.
type ResponseKind string

const (
	ResponseLogin  ResponseKind = "login"
	ResponseWho    ResponseKind = "who"
	ResponseLogout ResponseKind = "logout"
	ResponseError  ResponseKind = "error"
)

// LoginContent is the payload of a login Request.
type LoginContent struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Width    uint32 `json:"width"`
	Height   uint32 `json:"height"`
}

// LogoutContent is the payload of a logout Request.
type LogoutContent struct {
	ID string `json:"id"`
}

// ErrorContent is the payload of an error Response.
type ErrorContent struct {
	Message string `json:"message"`
}

// Request is one of Login, Who, or Logout. Exactly one of Login or
// Logout is populated, matching which Kind is set.
type Request struct {
	Kind   RequestKind
	Login  *LoginContent
	Logout *LogoutContent
}

type wireRequest struct {
	Kind    RequestKind     `json:"request"`
	Content json.RawMessage `json:"content,omitempty"`
}

// MarshalJSON renders r as {"request":"<kind>","content":{...}}.
func (r Request) MarshalJSON() ([]byte, error) {
	w := wireRequest{Kind: r.Kind}
	var (
		raw []byte
		err error
	)
	switch r.Kind {
	case RequestLogin:
		raw, err = json.Marshal(r.Login)
	case RequestLogout:
		raw, err = json.Marshal(r.Logout)
	case RequestWho:
		// no content
	default:
		return nil, fmt.Errorf("ipc: unknown request kind %q", r.Kind)
	}
	if err != nil {
		return nil, err
	}
	w.Content = raw
	return json.Marshal(w)
}

// UnmarshalJSON parses the {"request":"<kind>","content":{...}} shape.
func (r *Request) UnmarshalJSON(data []byte) error {
	var w wireRequest
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Kind = w.Kind
	switch w.Kind {
	case RequestLogin:
		var c LoginContent
		if len(w.Content) > 0 {
			if err := json.Unmarshal(w.Content, &c); err != nil {
				return fmt.Errorf("ipc: decoding login content: %w", err)
			}
		}
		r.Login = &c
	case RequestLogout:
		var c LogoutContent
		if len(w.Content) > 0 {
			if err := json.Unmarshal(w.Content, &c); err != nil {
				return fmt.Errorf("ipc: decoding logout content: %w", err)
			}
		}
		r.Logout = &c
	case RequestWho:
		// no content
	default:
		return fmt.Errorf("ipc: unknown request kind %q", w.Kind)
	}
	return nil
}

// Response is one of Login, Who, Logout, or Error.
type Response struct {
	Kind  ResponseKind
	Login session.View
	Who   []session.View
	Error *ErrorContent
}

type wireResponse struct {
	Kind    ResponseKind    `json:"response"`
	Content json.RawMessage `json:"content,omitempty"`
}

// MarshalJSON renders r as {"response":"<kind>","content":...}.
func (r Response) MarshalJSON() ([]byte, error) {
	w := wireResponse{Kind: r.Kind}
	var (
		raw []byte
		err error
	)
	switch r.Kind {
	case ResponseLogin:
		raw, err = json.Marshal(r.Login)
	case ResponseWho:
		who := r.Who
		if who == nil {
			who = []session.View{}
		}
		raw, err = json.Marshal(who)
	case ResponseError:
		raw, err = json.Marshal(r.Error)
	case ResponseLogout:
		// no content
	default:
		return nil, fmt.Errorf("ipc: unknown response kind %q", r.Kind)
	}
	if err != nil {
		return nil, err
	}
	w.Content = raw
	return json.Marshal(w)
}

// UnmarshalJSON parses the {"response":"<kind>","content":...} shape.
func (r *Response) UnmarshalJSON(data []byte) error {
	var w wireResponse
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Kind = w.Kind
	switch w.Kind {
	case ResponseLogin:
		var v session.View
		if len(w.Content) > 0 {
			if err := json.Unmarshal(w.Content, &v); err != nil {
				return fmt.Errorf("ipc: decoding login response: %w", err)
			}
		}
		r.Login = v
	case ResponseWho:
		var vs []session.View
		if len(w.Content) > 0 {
			if err := json.Unmarshal(w.Content, &vs); err != nil {
				return fmt.Errorf("ipc: decoding who response: %w", err)
			}
		}
		r.Who = vs
	case ResponseError:
		var e ErrorContent
		if len(w.Content) > 0 {
			if err := json.Unmarshal(w.Content, &e); err != nil {
				return fmt.Errorf("ipc: decoding error response: %w", err)
			}
		}
		r.Error = &e
	case ResponseLogout:
		// no content
	default:
		return fmt.Errorf("ipc: unknown response kind %q", w.Kind)
	}
	return nil
}

// NewErrorResponse builds an error Response from err's message. A
// [session.Error]'s kind tag is logged, not surfaced here — spec.md §7
// requires internal error kinds stay off the wire, so the client only
// ever sees [session.Error.ClientMessage].
func NewErrorResponse(err error) Response {
	if se, ok := err.(*session.Error); ok {
		return Response{Kind: ResponseError, Error: &ErrorContent{Message: se.ClientMessage()}}
	}
	return Response{Kind: ResponseError, Error: &ErrorContent{Message: err.Error()}}
}

// Encoder encodes Responses and decodes Requests, mirroring
// original_source's Encoder (there a thin wrapper over serde_json; here
// a thin wrapper over encoding/json so callers never touch the wire
// format directly).
type Encoder struct{}

// NewEncoder returns a ready-to-use Encoder.
func NewEncoder() Encoder { return Encoder{} }

// Encode renders a Response as a single line of JSON (no trailing
// newline).
func (Encoder) Encode(resp Response) ([]byte, error) {
	return json.Marshal(resp)
}

// Decode parses a line of JSON into a Request.
func (Encoder) Decode(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, err
	}
	return req, nil
}

// EncodeRequest renders a Request as a single line of JSON (no trailing
// newline). Used by the client binary; the server only ever Decodes.
func (Encoder) EncodeRequest(req Request) ([]byte, error) {
	return json.Marshal(req)
}

// DecodeResponse parses a line of JSON into a Response. Used by the
// client binary; the server only ever Encodes.
func (Encoder) DecodeResponse(data []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}
