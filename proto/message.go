// Package proto implements the framed control-message protocol carried by a
// pair of fifo.FIFO rings, and the symmetric endpoint logic (send, receive,
// dispatch, wait-for-reply) built on top of it.
package proto

import "github.com/ardnew/remoteplugin/fifo"

// ID identifies the kind of a Message. Values below UserBase are reserved
// by this package; user-defined plugin messages start at UserBase.
type ID int32

// Message ids, stable on the wire.
const (
	Undefined ID = iota
	GeneralFailure
	InitDone
	ClosePlugin
	SampleRateInformation
	BufferSizeInformation
	MidiEvent
	StartProcessing
	ProcessingDone
	ChangeSharedMemoryKey
	ChangeInputCount
	ChangeOutputCount
	ShowUI
	HideUI
	SaveSettingsToFile
	SaveSettingsToString
	LoadSettingsFromFile
	LoadSettingsFromString
	LoadPresetFromFile

	// UserBase is the first id available for plugin-specific messages.
	UserBase ID = 64
)

func (id ID) String() string {
	switch id {
	case Undefined:
		return "Undefined"
	case GeneralFailure:
		return "GeneralFailure"
	case InitDone:
		return "InitDone"
	case ClosePlugin:
		return "ClosePlugin"
	case SampleRateInformation:
		return "SampleRateInformation"
	case BufferSizeInformation:
		return "BufferSizeInformation"
	case MidiEvent:
		return "MidiEvent"
	case StartProcessing:
		return "StartProcessing"
	case ProcessingDone:
		return "ProcessingDone"
	case ChangeSharedMemoryKey:
		return "ChangeSharedMemoryKey"
	case ChangeInputCount:
		return "ChangeInputCount"
	case ChangeOutputCount:
		return "ChangeOutputCount"
	case ShowUI:
		return "ShowUI"
	case HideUI:
		return "HideUI"
	case SaveSettingsToFile:
		return "SaveSettingsToFile"
	case SaveSettingsToString:
		return "SaveSettingsToString"
	case LoadSettingsFromFile:
		return "LoadSettingsFromFile"
	case LoadSettingsFromString:
		return "LoadSettingsFromString"
	case LoadPresetFromFile:
		return "LoadPresetFromFile"
	default:
		if id >= UserBase {
			return "User"
		}
		return "Unknown"
	}
}

// Message is the unit exchanged by the protocol: an id plus an ordered list
// of decimal-string arguments. Integer-valued arguments are stringified by
// the sender and parsed by the receiver; a malformed argument parses as 0
// rather than erroring, matching the wire convention's historical atoi
// behavior.
type Message struct {
	ID   ID
	Args []string
}

// New builds a Message with no arguments.
func New(id ID) Message { return Message{ID: id} }

// AddInt appends an integer argument, encoded in base 10.
func (m Message) AddInt(v int32) Message {
	m.Args = append(m.Args, fifo.FormatInt(v))
	return m
}

// AddString appends a raw string argument.
func (m Message) AddString(s string) Message {
	m.Args = append(m.Args, s)
	return m
}

// Int returns the i'th argument parsed as a decimal integer, or 0 if the
// index is out of range or the argument does not parse.
func (m Message) Int(i int) int32 {
	if i < 0 || i >= len(m.Args) {
		return 0
	}
	return fifo.ParseInt(m.Args[i])
}

// String returns the i'th argument verbatim, or "" if the index is out of
// range.
func (m Message) String(i int) string {
	if i < 0 || i >= len(m.Args) {
		return ""
	}
	return m.Args[i]
}

// NewSaveSettingsToFile builds a SaveSettingsToFile request carrying the
// destination path.
func NewSaveSettingsToFile(path string) Message {
	return New(SaveSettingsToFile).AddString(path)
}

// NewSaveSettingsToString builds a SaveSettingsToString request.
func NewSaveSettingsToString() Message {
	return New(SaveSettingsToString)
}

// NewLoadSettingsFromFile builds a LoadSettingsFromFile request carrying the
// source path.
func NewLoadSettingsFromFile(path string) Message {
	return New(LoadSettingsFromFile).AddString(path)
}

// NewLoadSettingsFromString builds a LoadSettingsFromString request
// carrying the serialized settings blob.
func NewLoadSettingsFromString(settings string) Message {
	return New(LoadSettingsFromString).AddString(settings)
}

// NewLoadPresetFromFile builds a LoadPresetFromFile request carrying the
// preset path.
func NewLoadPresetFromFile(path string) Message {
	return New(LoadPresetFromFile).AddString(path)
}
