package common

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ValentinKolb/dHook/lib/cell"
	"github.com/ValentinKolb/dHook/lib/region"
	"github.com/ValentinKolb/dHook/lib/table"
	"github.com/ValentinKolb/dHook/lib/table/mtable"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Table     string      `json:"table,omitempty"`     // Used for: Mutate
	Row       []byte      `json:"row,omitempty"`       // Used for: Mutate, Increment, Get, Row
	Family    []byte      `json:"family,omitempty"`    // Used for: Increment, Get
	Qualifier []byte      `json:"qualifier,omitempty"` // Used for: Increment, Get
	Delta     int64       `json:"delta,omitempty"`     // Used for: Increment (request)
	Cells     []cell.Cell `json:"cells,omitempty"`     // Used for: Mutate, Put (request), Mutate, Get, Row (response)

	// Response only fields
	Counter int64  `json:"counter,omitempty"` // Used for: Increment responses
	Ok      bool   `json:"ok,omitempty"`      // Used for: Get responses
	Code    uint64 `json:"code,omitempty"`    // table.RetCode of Err
	Partial bool   `json:"partial,omitempty"` // Mutate responses: committed, but derived writes are incomplete
	Err     string `json:"err,omitempty"`     // Empty if no error, otherwise contains the error message

	// Meta information
	Meta []byte `json:"meta,omitempty"` // Used for: Info responses (JSON encoded TableInfo)
}

// setErr stores err in the response fields of the message.
func (m *Message) setErr(err error) *Message {
	if err == nil {
		return m
	}
	m.Err = err.Error()
	m.Code = uint64(table.RetCInternalError)

	var tErr *table.Error
	if errors.As(err, &tErr) {
		m.Code = uint64(tErr.Code)
		m.Err = tErr.Msg
	}
	if errors.Is(err, region.ErrDerivedIncomplete) {
		m.Partial = true
		m.Err = err.Error()
	}
	return m
}

// AsError reconstructs the error carried by a response (nil if there is none).
// Table errors keep their return code, so errors.Is works with the table.Err* values.
func (m *Message) AsError() error {
	if m.Err == "" && m.MsgType != MsgTError {
		return nil
	}
	code := table.RetCode(m.Code)
	if code == table.RetCSuccess {
		code = table.RetCInternalError
	}
	err := table.NewError(code, m.Err)
	if m.Partial {
		return fmt.Errorf("%w: %w", region.ErrDerivedIncomplete, err)
	}
	return err
}

// Mutation rebuilds the mutation of a Mutate request.
func (m *Message) Mutation() *cell.Mutation {
	mut := cell.NewMutation(m.Table, m.Row)
	for _, c := range m.Cells {
		mut.Add(c.Family, c.Qualifier, c.Timestamp, c.Value)
	}
	return mut
}

// TableInfo is the payload of an Info response (JSON encoded in Message.Meta).
type TableInfo struct {
	mtable.TableInfo
	ID    uint64    `json:"id"`
	Type  TableType `json:"type"`
	Hooks []string  `json:"hooks,omitempty"`
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewMutateRequest creates a new Mutate request
func NewMutateRequest(m *cell.Mutation) *Message {
	return &Message{
		MsgType: MsgTMutate,
		Table:   m.Table,
		Row:     m.Row,
		Cells:   m.Cells(),
	}
}

// NewMutateResponse creates a new Mutate response carrying the committed cells
func NewMutateResponse(committed *cell.Mutation, err error) *Message {
	msg := &Message{
		MsgType: MsgTMutate,
	}
	if committed != nil {
		msg.Table = committed.Table
		msg.Row = committed.Row
		msg.Cells = committed.Cells()
	}
	return msg.setErr(err)
}

// NewPutRequest creates a new Put request
func NewPutRequest(cells []cell.Cell) *Message {
	return &Message{
		MsgType: MsgTPut,
		Cells:   cells,
	}
}

// NewPutResponse creates a new Put response
func NewPutResponse(err error) *Message {
	return (&Message{MsgType: MsgTPut}).setErr(err)
}

// NewIncrementRequest creates a new Increment request
func NewIncrementRequest(row, family, qualifier []byte, delta int64) *Message {
	return &Message{
		MsgType:   MsgTIncrement,
		Row:       row,
		Family:    family,
		Qualifier: qualifier,
		Delta:     delta,
	}
}

// NewIncrementResponse creates a new Increment response
func NewIncrementResponse(value int64, err error) *Message {
	msg := &Message{
		MsgType: MsgTIncrement,
		Counter: value,
	}
	return msg.setErr(err)
}

// NewGetRequest creates a new Get request
func NewGetRequest(row, family, qualifier []byte) *Message {
	return &Message{
		MsgType:   MsgTGet,
		Row:       row,
		Family:    family,
		Qualifier: qualifier,
	}
}

// NewGetResponse creates a new Get response
func NewGetResponse(c cell.Cell, ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTGet,
		Ok:      ok,
	}
	if ok {
		msg.Cells = []cell.Cell{c}
	}
	return msg.setErr(err)
}

// NewRowRequest creates a new Row request
func NewRowRequest(row []byte) *Message {
	return &Message{
		MsgType: MsgTRow,
		Row:     row,
	}
}

// NewRowResponse creates a new Row response
func NewRowResponse(cells []cell.Cell, err error) *Message {
	msg := &Message{
		MsgType: MsgTRow,
		Cells:   cells,
	}
	return msg.setErr(err)
}

// NewInfoRequest creates a new Info request
func NewInfoRequest() *Message {
	return &Message{
		MsgType: MsgTInfo,
	}
}

// NewInfoResponse creates a new Info response
func NewInfoResponse(meta []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTInfo,
		Meta:    meta,
	}
	return msg.setErr(err)
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Code:    uint64(table.RetCInternalError),
		Err:     err,
	}
}

// NewErrorResponseFor creates a new Error response keeping the code of a table error
func NewErrorResponseFor(err error) *Message {
	return (&Message{MsgType: MsgTError}).setErr(err)
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

var messageTypeNames = map[MessageType]string{
	MsgTSuccess:   "success",
	MsgTError:     "error",
	MsgTMutate:    "mutate",
	MsgTPut:       "put",
	MsgTIncrement: "increment",
	MsgTGet:       "get",
	MsgTRow:       "row",
	MsgTInfo:      "info",
}

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	for mt, name := range messageTypeNames {
		if name == s {
			*t = mt
			return nil
		}
	}
	return fmt.Errorf("unknown message type: %s", s)
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// Region operations

	MsgTMutate // Commit a mutation and run the hooks of the table

	// Table operations

	MsgTPut       // Write a batch of cells (bypasses hooks)
	MsgTIncrement // Atomically increment a counter
	MsgTGet       // Get the latest version of a column
	MsgTRow       // Get the latest version of every column of a row
	MsgTInfo      // Get table statistics
)
