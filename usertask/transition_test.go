package usertask_test

import (
	"github.com/enactiq/enact/process"
	. "github.com/enactiq/enact/usertask"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("func Instance.NewToken()", func() {
	var task *Instance

	BeforeEach(func() {
		task = NewInstance(
			&process.WorkItem{
				ID:   "<work-item>",
				Name: "<task>",
			},
		)
	})

	It("returns a token for a legal transition", func() {
		tok, err := task.NewToken(TransitionClaim, nil)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(tok.TransitionID()).To(Equal(TransitionClaim))
		Expect(tok.Target()).To(Equal(Reserved))
	})

	It("carries the transition payload", func() {
		tok, err := task.NewToken(
			TransitionComplete,
			map[string]any{
				"approved": true,
			},
		)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(tok.Data()).To(HaveKeyWithValue("approved", true))
	})

	It("allows an administrative skip from any non-terminal state", func() {
		tok, err := task.NewToken(TransitionSkip, nil)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(tok.Target()).To(Equal(Skipped))
	})

	It("leaves the state unchanged for a notification", func() {
		tok, err := task.NewToken(TransitionNotify, nil)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(tok.Target()).To(Equal(Created))
	})

	It("returns an error if the transition is not legal from the current state", func() {
		_, err := task.NewToken(TransitionStop, nil)
		Expect(err).To(Equal(
			IllegalTransitionError{
				TaskID:     task.ID(),
				Transition: TransitionStop,
				State:      Created,
			},
		))
	})

	It("returns an error if the transition is not recognized", func() {
		_, err := task.NewToken("<unknown>", nil)
		Expect(err).To(Equal(
			IllegalTransitionError{
				TaskID:     task.ID(),
				Transition: "<unknown>",
				State:      Created,
			},
		))
	})
})
