package mlog

import (
	"fmt"
	"io"

	"github.com/dogmatiq/iago/must"
)

const (
	// InstanceIDIcon is the icon shown directly before a process instance ID.
	// It is an "equals sign", indicating that this log line "is exactly about"
	// the displayed instance.
	InstanceIDIcon Icon = "="

	// WorkItemIDIcon is the icon shown directly before a work item ID. It is
	// the mathematical "therefore" symbol, indicating that the work item came
	// about as a consequence of the displayed instance.
	WorkItemIDIcon Icon = "∴"

	// TaskIDIcon is the icon shown directly before a user task instance ID.
	// It is the mathematical "member of set" symbol, indicating that the task
	// belongs to the displayed work item.
	TaskIDIcon Icon = "⋲"

	// ProcessIcon is the icon shown when a log message relates to a process
	// instance. It is three horizontal lines, representing the steps in a
	// process.
	ProcessIcon Icon = "≡"

	// TaskIcon is the icon shown when a log message relates to a user task
	// instance. It is a ballot box, representing work awaiting a human.
	TaskIcon Icon = "☐"

	// DispatchIcon is the icon shown to indicate that a work item is being
	// dispatched to a handler. It is a downward pointing arrow, as such
	// "inbound" work could be considered as being "downloaded" from the
	// engine.
	DispatchIcon Icon = "▼"

	// SignalIcon is the icon shown to indicate that a terminal task state is
	// being signalled back to the owning process instance. It is an upward
	// pointing arrow, the counterpart of DispatchIcon.
	SignalIcon Icon = "▲"

	// TransitionIcon is the icon shown when a lifecycle transition is
	// applied. It is a rightwards arrow between the two states.
	TransitionIcon Icon = "⇒"

	// RetryIcon is the icon shown when a deadline is being redelivered. It is
	// an open-circle with an arrow, indicating that the firing has "come
	// around again".
	RetryIcon Icon = "↻"

	// SystemIcon is the icon shown when a transition is system-driven (such
	// as a deadline firing) rather than user-driven. It is a sprocket,
	// representing the inner workings of the machine.
	SystemIcon Icon = "⚙"

	// ErrorIcon is the icon shown when logging information about an error.
	// It is a heavy cross, indicating a failure.
	ErrorIcon Icon = "✖"

	// SeparatorIcon is an icon used to separate strings of unrelated text
	// inside a log message. It is a large bullet, intended to have a large
	// visual impact.
	SeparatorIcon Icon = "●"
)

// Icon is a unicode symbol used as an icon in log messages.
type Icon string

func (i Icon) String() string {
	return string(i)
}

// WriteTo writes a string representation of the icon to w.
// If i is the zero-value, a single space is rendered.
func (i Icon) WriteTo(w io.Writer) (int64, error) {
	s := i.String()
	if i == "" {
		s = " "
	}

	n, err := io.WriteString(w, s)
	return int64(n), err
}

// WithLabel returns an IconWithLabel containing this icon and the given
// label.
func (i Icon) WithLabel(f string, v ...interface{}) IconWithLabel {
	return IconWithLabel{
		i,
		fmt.Sprintf(f, v...),
	}
}

// WithID returns an IconWithLabel containing this icon and an ID as its
// label.
//
// The id is formatted using FormatID().
func (i Icon) WithID(id string) IconWithLabel {
	return i.WithLabel(FormatID(id))
}

// IconWithLabel is a container for an icon and its associated text label.
type IconWithLabel struct {
	Icon  Icon
	Label string
}

func (i IconWithLabel) String() string {
	return i.Icon.String() + " " + i.Label
}

// WriteTo writes a string representation of the icon and its label to w.
func (i IconWithLabel) WriteTo(w io.Writer) (_ int64, err error) {
	defer must.Recover(&err)

	n := must.WriteTo(w, i.Icon)
	n += must.WriteString(w, " ")
	n += must.WriteString(w, i.Label)

	return int64(n), nil
}

// errorIcon returns the icon to use when err may indicate a failure.
func errorIcon(err error) Icon {
	if err == nil {
		return ""
	}

	return ErrorIcon
}
