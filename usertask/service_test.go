package usertask_test

import (
	"context"
	"errors"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/enactiq/enact/identity"
	"github.com/enactiq/enact/persistence"
	"github.com/enactiq/enact/persistence/provider/memory"
	"github.com/enactiq/enact/process"
	. "github.com/enactiq/enact/usertask"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Service", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		store  persistence.Store[*Instance]
		svc    *Service
		task   *Instance
		events []Event

		john = identity.Identity{Name: "john"}
		mary = identity.Identity{Name: "mary"}
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 3*time.Second)

		p := memory.New[*Instance]()

		var err error
		store, err = p.Open(ctx, "<definition>")
		Expect(err).ShouldNot(HaveOccurred())

		events = nil

		svc = &Service{
			Store: store,
			Listeners: []Listener{
				func(_ context.Context, ev Event) error {
					events = append(events, ev)
					return nil
				},
			},
			Logger: logging.DiscardLogger{},
		}

		task = NewInstance(
			&process.WorkItem{
				ID:                "<work-item>",
				Name:              "<task>",
				ProcessInstanceID: "<process-instance>",
				Parameters: map[string]any{
					ParamActors: "john",
					ParamGroups: "finance",
				},
			},
		)

		err = svc.Create(ctx, task)
		Expect(err).ShouldNot(HaveOccurred())
	})

	AfterEach(func() {
		store.Close()
		cancel()
	})

	Describe("func Create()", func() {
		It("persists the task", func() {
			ok, err := store.Exists(ctx, task.ID())
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("fires the initial state-change event", func() {
			Expect(events).To(HaveLen(1))
			Expect(events[0].Transition).To(Equal("create"))
			Expect(events[0].Terminal).To(BeFalse())
		})
	})

	Describe("func Claim()", func() {
		It("reserves the task for the acting identity", func() {
			err := svc.Claim(ctx, task.ID(), john)
			Expect(err).ShouldNot(HaveOccurred())

			t, ok, err := svc.Get(ctx, task.ID())
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(t.State()).To(Equal(Reserved))
			Expect(t.ActualOwner()).To(Equal("john"))
		})

		It("denies identities that do not satisfy the ownership policy", func() {
			err := svc.Claim(ctx, task.ID(), mary)
			Expect(err).To(BeAssignableToTypeOf(identity.NotAuthorizedError{}))
		})

		It("authorizes members of a potential group", func() {
			auditor := identity.Identity{
				Name:  "alice",
				Roles: []string{"finance"},
			}

			err := svc.Claim(ctx, task.ID(), auditor)
			Expect(err).ShouldNot(HaveOccurred())
		})

		It("returns an error if the task does not exist", func() {
			err := svc.Claim(ctx, "<unknown>", john)
			Expect(err).To(Equal(NotFoundError{TaskID: "<unknown>"}))
		})
	})

	Describe("func Start()", func() {
		It("claims and starts an unclaimed task in one step", func() {
			err := svc.Start(ctx, task.ID(), john)
			Expect(err).ShouldNot(HaveOccurred())

			t, _, err := svc.Get(ctx, task.ID())
			Expect(err).ShouldNot(HaveOccurred())
			Expect(t.State()).To(Equal(InProgress))
			Expect(t.ActualOwner()).To(Equal("john"))
			Expect(t.StartedAt()).NotTo(BeZero())
		})
	})

	Describe("func Release()", func() {
		It("returns the task to the unclaimed pool", func() {
			err := svc.Claim(ctx, task.ID(), john)
			Expect(err).ShouldNot(HaveOccurred())

			err = svc.Release(ctx, task.ID(), john)
			Expect(err).ShouldNot(HaveOccurred())

			t, _, err := svc.Get(ctx, task.ID())
			Expect(err).ShouldNot(HaveOccurred())
			Expect(t.State()).To(Equal(Created))
			Expect(t.ActualOwner()).To(BeEmpty())
		})
	})

	Describe("func Complete()", func() {
		It("records the outputs and removes the task from the store", func() {
			err := svc.Start(ctx, task.ID(), john)
			Expect(err).ShouldNot(HaveOccurred())

			err = svc.Complete(
				ctx,
				task.ID(),
				map[string]any{
					"approved": true,
				},
				john,
			)
			Expect(err).ShouldNot(HaveOccurred())

			ok, err := store.Exists(ctx, task.ID())
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("fires a terminal event carrying the task's outputs", func() {
			err := svc.Complete(
				ctx,
				task.ID(),
				map[string]any{
					"approved": true,
				},
				john,
			)
			Expect(err).ShouldNot(HaveOccurred())

			ev := events[len(events)-1]
			Expect(ev.Transition).To(Equal(TransitionComplete))
			Expect(ev.Terminal).To(BeTrue())
			Expect(ev.UserDriven).To(BeTrue())
			Expect(ev.Task.Outputs()).To(HaveKeyWithValue("approved", true))
		})

		It("propagates listener errors to the caller", func() {
			svc.Listeners = append(
				svc.Listeners,
				func(context.Context, Event) error {
					return errors.New("<error>")
				},
			)

			err := svc.Complete(ctx, task.ID(), nil, john)
			Expect(err).To(MatchError("<error>"))
		})

		It("rejects further transitions once the task has ended", func() {
			err := svc.Complete(ctx, task.ID(), nil, john)
			Expect(err).ShouldNot(HaveOccurred())

			err = svc.Complete(ctx, task.ID(), nil, john)
			Expect(err).To(Equal(NotFoundError{TaskID: task.ID()}))
		})
	})

	Describe("func Abort()", func() {
		It("marks the task obsolete without consulting the ownership policy", func() {
			err := svc.Abort(ctx, task.ID(), false)
			Expect(err).ShouldNot(HaveOccurred())

			ev := events[len(events)-1]
			Expect(ev.To).To(Equal(Obsolete))
			Expect(ev.Terminal).To(BeTrue())
			Expect(ev.UserDriven).To(BeFalse())
		})
	})

	Describe("func Reassign()", func() {
		It("transfers ownership without altering the potential groups", func() {
			err := svc.Reassign(ctx, task.ID(), []string{"alice"}, nil)
			Expect(err).ShouldNot(HaveOccurred())

			t, _, err := svc.Get(ctx, task.ID())
			Expect(err).ShouldNot(HaveOccurred())
			Expect(t.ActualOwner()).To(Equal("alice"))
			Expect(t.PotentialUsers()).To(Equal([]string{"alice"}))
			Expect(t.PotentialGroups()).To(Equal([]string{"finance"}))
		})

		It("fires an engine-driven event", func() {
			err := svc.Reassign(ctx, task.ID(), []string{"alice"}, nil)
			Expect(err).ShouldNot(HaveOccurred())

			ev := events[len(events)-1]
			Expect(ev.Transition).To(Equal(TransitionReassign))
			Expect(ev.UserDriven).To(BeFalse())
		})
	})

	Describe("func Notify()", func() {
		It("fires an event without changing the task's state", func() {
			err := svc.Notify(
				ctx,
				task.ID(),
				map[string]any{
					"reminder": "<payload>",
				},
			)
			Expect(err).ShouldNot(HaveOccurred())

			ev := events[len(events)-1]
			Expect(ev.Transition).To(Equal(TransitionNotify))
			Expect(ev.From).To(Equal(ev.To))
			Expect(ev.Terminal).To(BeFalse())

			t, _, err := svc.Get(ctx, task.ID())
			Expect(err).ShouldNot(HaveOccurred())
			Expect(t.State()).To(Equal(Created))
		})

		It("delivers the notification payload to the listeners", func() {
			err := svc.Notify(
				ctx,
				task.ID(),
				map[string]any{
					"reminder": "<payload>",
				},
			)
			Expect(err).ShouldNot(HaveOccurred())

			ev := events[len(events)-1]
			Expect(ev.Data).To(HaveKeyWithValue("reminder", "<payload>"))
		})
	})

	Describe("func GetByWorkItem()", func() {
		It("finds the task belonging to a work item", func() {
			t, ok, err := svc.GetByWorkItem(ctx, "<work-item>")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(t.ID()).To(Equal(task.ID()))
		})

		It("returns false if no task belongs to the work item", func() {
			_, ok, err := svc.GetByWorkItem(ctx, "<unknown>")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})

	Describe("func AddComment()", func() {
		It("persists the comment", func() {
			c, err := svc.AddComment(ctx, task.ID(), john, "<comment>")
			Expect(err).ShouldNot(HaveOccurred())

			t, _, err := svc.Get(ctx, task.ID())
			Expect(err).ShouldNot(HaveOccurred())
			Expect(t.Comments()).To(HaveLen(1))
			Expect(t.Comments()[0].ID).To(Equal(c.ID))
		})
	})

	Describe("func AddAttachment()", func() {
		It("persists the attachment", func() {
			a, err := svc.AddAttachment(ctx, task.ID(), john, "<name>", "<uri>")
			Expect(err).ShouldNot(HaveOccurred())

			t, _, err := svc.Get(ctx, task.ID())
			Expect(err).ShouldNot(HaveOccurred())
			Expect(t.Attachments()).To(HaveLen(1))
			Expect(t.Attachments()[0].ID).To(Equal(a.ID))
		})
	})
})
