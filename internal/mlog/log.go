package mlog

import (
	"fmt"
	"time"

	"github.com/dogmatiq/dodeca/logging"
)

// LogProcessStatus logs a message indicating that a process instance has
// changed status.
func LogProcessStatus(
	log logging.Logger,
	definitionID string,
	instanceID string,
	status string,
) {
	logging.Log(
		log,
		String(
			[]IconWithLabel{
				InstanceIDIcon.WithID(instanceID),
			},
			[]Icon{
				ProcessIcon,
				"",
			},
			definitionID,
			status,
		),
	)
}

// LogDispatch logs a message indicating that a work item is being dispatched
// to a handler.
func LogDispatch(
	log logging.Logger,
	instanceID string,
	workItemID string,
	handler string,
) {
	if !logging.IsDebug(log) {
		return
	}

	logging.Debug(
		log,
		String(
			[]IconWithLabel{
				InstanceIDIcon.WithID(instanceID),
				WorkItemIDIcon.WithID(workItemID),
			},
			[]Icon{
				DispatchIcon,
				"",
			},
			handler,
		),
	)
}

// LogTaskTransition logs a message indicating that a user task instance has
// undergone a lifecycle transition.
//
// userDriven is false when the transition was applied by the system, such as
// a deadline firing.
func LogTaskTransition(
	log logging.Logger,
	taskID string,
	transition string,
	from, to string,
	userDriven bool,
) {
	actor := Icon("")
	if !userDriven {
		actor = SystemIcon
	}

	logging.Log(
		log,
		String(
			[]IconWithLabel{
				TaskIDIcon.WithID(taskID),
			},
			[]Icon{
				TaskIcon,
				actor,
			},
			transition,
			fmt.Sprintf("%s %s %s", from, TransitionIcon, to),
		),
	)
}

// LogSignal logs a message indicating that a terminal task state is being
// signalled back to the owning process instance.
func LogSignal(
	log logging.Logger,
	instanceID string,
	workItemID string,
	transition string,
) {
	if !logging.IsDebug(log) {
		return
	}

	logging.Debug(
		log,
		String(
			[]IconWithLabel{
				InstanceIDIcon.WithID(instanceID),
				WorkItemIDIcon.WithID(workItemID),
			},
			[]Icon{
				SignalIcon,
				"",
			},
			transition,
		),
	)
}

// LogHandlerResult logs a debug message describing the outcome of dispatching
// a work item to a handler.
//
// It is designed to be used with defer.
func LogHandlerResult(
	log logging.Logger,
	instanceID string,
	workItemID string,
	handler string,
	err *error,
) {
	if !logging.IsDebug(log) {
		return
	}

	if p := recover(); p != nil {
		// We don't want to log anything if there was a panic.
		panic(p)
	}

	messages := []string{
		handler,
	}

	if *err != nil {
		messages = append(
			messages,
			(*err).Error(),
		)
	} else {
		messages = append(
			messages,
			"work item handled successfully",
		)
	}

	logging.Debug(
		log,
		String(
			[]IconWithLabel{
				InstanceIDIcon.WithID(instanceID),
				WorkItemIDIcon.WithID(workItemID),
			},
			[]Icon{
				DispatchIcon,
				errorIcon(*err),
			},
			messages...,
		),
	)
}

// LogIgnoredFailure logs a message indicating that an error occurred on a
// system-driven completion path and is deliberately not being propagated.
func LogIgnoredFailure(
	log logging.Logger,
	taskID string,
	err error,
) {
	logging.Log(
		log,
		String(
			[]IconWithLabel{
				TaskIDIcon.WithID(taskID),
			},
			[]Icon{
				SystemIcon,
				ErrorIcon,
			},
			err.Error(),
			"error ignored on notify path",
		),
	)
}

// LogDeadline logs a message indicating that a deadline has fired against a
// user task instance.
func LogDeadline(
	log logging.Logger,
	taskID string,
	transition string,
	attempt int,
) {
	icon := Icon("")
	if attempt > 0 {
		icon = RetryIcon
	}

	logging.Log(
		log,
		String(
			[]IconWithLabel{
				TaskIDIcon.WithID(taskID),
			},
			[]Icon{
				SystemIcon,
				icon,
			},
			transition,
			"deadline elapsed",
		),
	)
}

// LogDeadlineFailure logs a message indicating that a deadline delivery
// failed and has been rescheduled.
func LogDeadlineFailure(
	log logging.Logger,
	taskID string,
	err error,
	next time.Time,
) {
	logging.Log(
		log,
		String(
			[]IconWithLabel{
				TaskIDIcon.WithID(taskID),
			},
			[]Icon{
				SystemIcon,
				ErrorIcon,
			},
			err.Error(),
			fmt.Sprintf(
				"deadline redelivery scheduled for %s",
				next.Format(time.RFC3339),
			),
		),
	)
}
