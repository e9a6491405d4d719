package humantask_test

import (
	"context"
	"errors"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/enactiq/enact/fixtures"
	"github.com/enactiq/enact/handler"
	. "github.com/enactiq/enact/handler/humantask"
	"github.com/enactiq/enact/identity"
	"github.com/enactiq/enact/persistence"
	"github.com/enactiq/enact/persistence/provider/memory"
	"github.com/enactiq/enact/process"
	"github.com/enactiq/enact/usertask"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// storeResolver resolves process instance managers directly from a store.
type storeResolver struct {
	Store persistence.Store[*process.Instance]
	Err   error
}

func (r *storeResolver) Manager(
	ctx context.Context,
	_, instanceID string,
) (process.Manager, bool, error) {
	if r.Err != nil {
		return nil, false, r.Err
	}

	inst, ok, err := r.Store.Find(ctx, instanceID, persistence.Mutable)
	if !ok || err != nil {
		return nil, false, err
	}

	return inst, true, nil
}

// stubScheduler records deadline scheduling calls.
type stubScheduler struct {
	Notifications []string
	Reassignments []string
	Cancelled     []string
}

func (s *stubScheduler) ScheduleNotify(taskID string, _ time.Time, _ map[string]any) {
	s.Notifications = append(s.Notifications, taskID)
}

func (s *stubScheduler) ScheduleReassign(taskID string, _ time.Time, _, _ []string) {
	s.Reassignments = append(s.Reassignments, taskID)
}

func (s *stubScheduler) Cancel(taskID string) {
	s.Cancelled = append(s.Cancelled, taskID)
}

var _ = Describe("type Handler", func() {
	var (
		ctx       context.Context
		cancel    context.CancelFunc
		processes persistence.Store[*process.Instance]
		tasks     persistence.Store[*usertask.Instance]
		svc       *usertask.Service
		resolver  *storeResolver
		scheduler *stubScheduler
		hnd       *Handler
		def       *fixtures.StubDefinition
		inst      *process.Instance

		john = identity.Identity{Name: "john"}
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 3*time.Second)

		var err error
		processes, err = memory.New[*process.Instance]().Open(ctx, "<definition>")
		Expect(err).ShouldNot(HaveOccurred())

		tasks, err = memory.New[*usertask.Instance]().Open(ctx, "<definition>")
		Expect(err).ShouldNot(HaveOccurred())

		svc = &usertask.Service{
			Store:  tasks,
			Logger: logging.DiscardLogger{},
		}

		resolver = &storeResolver{Store: processes}
		scheduler = &stubScheduler{}

		hnd = &Handler{
			Tasks:     svc,
			Processes: resolver,
			Scheduler: scheduler,
			Logger:    logging.DiscardLogger{},
		}

		svc.Listeners = []usertask.Listener{
			hnd.Listener(),
		}

		registry, err := handler.NewRegistry(logging.DiscardLogger{}, hnd)
		Expect(err).ShouldNot(HaveOccurred())

		def = &fixtures.StubDefinition{
			Tasks: []fixtures.StubTask{
				{
					Name:   "Human Task",
					NodeID: "<node>",
					Parameters: map[string]any{
						usertask.ParamTaskName: "Approve Order",
						usertask.ParamActors:   "john",
						"OrderID":              "<order>",
					},
				},
			},
		}

		inst = process.NewInstance(
			def,
			processes,
			registry,
			nil,
			logging.DiscardLogger{},
		)

		err = inst.Start(ctx)
		Expect(err).ShouldNot(HaveOccurred())
	})

	AfterEach(func() {
		processes.Close()
		tasks.Close()
		cancel()
	})

	currentTask := func() *usertask.Instance {
		wi := inst.WorkItems()
		Expect(wi).To(HaveLen(1))

		t, ok, err := svc.GetByWorkItem(ctx, wi[0].ID)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeTrue())

		return t
	}

	Describe("func Activate()", func() {
		It("creates a task instance bound to the work item", func() {
			t := currentTask()
			Expect(t.TaskName()).To(Equal("Approve Order"))
			Expect(t.State()).To(Equal(usertask.Created))
			Expect(t.Inputs()).To(HaveKeyWithValue("OrderID", "<order>"))
		})

		It("leaves the work item pending", func() {
			Expect(inst.Status()).To(Equal(process.Active))
			Expect(inst.WorkItems()).To(HaveLen(1))
		})

		It("schedules the task's not-started deadline descriptors", func() {
			def.Tasks[0].Parameters[usertask.ParamNotStartedDeadlines] = []usertask.Deadline{
				{Duration: time.Minute},
			}
			def.Tasks[0].Parameters[usertask.ParamNotCompletedReassignments] = []usertask.Reassignment{
				{Duration: time.Hour, Users: []string{"alice"}},
			}

			i := process.NewInstance(
				def,
				processes,
				mustRegistry(hnd),
				nil,
				logging.DiscardLogger{},
			)

			err := i.Start(ctx)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(scheduler.Notifications).To(HaveLen(1))
			Expect(scheduler.Reassignments).To(BeEmpty())
		})
	})

	When("work on the task begins", func() {
		It("replaces the not-started deadlines with the not-completed deadlines", func() {
			def.Tasks[0].Parameters[usertask.ParamNotStartedDeadlines] = []usertask.Deadline{
				{Duration: time.Minute},
			}
			def.Tasks[0].Parameters[usertask.ParamNotCompletedReassignments] = []usertask.Reassignment{
				{Duration: time.Hour, Users: []string{"alice"}},
			}

			i := process.NewInstance(
				def,
				processes,
				mustRegistry(hnd),
				nil,
				logging.DiscardLogger{},
			)

			err := i.Start(ctx)
			Expect(err).ShouldNot(HaveOccurred())

			wi := i.WorkItems()
			Expect(wi).To(HaveLen(1))

			t, ok, err := svc.GetByWorkItem(ctx, wi[0].ID)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeTrue())

			err = svc.Start(ctx, t.ID(), john)
			Expect(err).ShouldNot(HaveOccurred())

			Expect(scheduler.Cancelled).To(ContainElement(t.ID()))
			Expect(scheduler.Reassignments).To(ConsistOf(t.ID()))
		})
	})

	When("a user completes the task", func() {
		It("advances the owning process instance", func() {
			t := currentTask()

			err := svc.Complete(
				ctx,
				t.ID(),
				map[string]any{
					"approved": true,
				},
				john,
			)
			Expect(err).ShouldNot(HaveOccurred())

			// The instance completed, so it is no longer stored.
			ok, err := processes.Exists(ctx, inst.ID())
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("cancels the task's pending deadlines", func() {
			t := currentTask()

			err := svc.Complete(ctx, t.ID(), nil, john)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(scheduler.Cancelled).To(ContainElement(t.ID()))
		})

		It("propagates signalling failures to the user", func() {
			t := currentTask()
			resolver.Err = errors.New("<error>")

			err := svc.Complete(ctx, t.ID(), nil, john)
			Expect(err).To(MatchError("<error>"))
		})
	})

	When("the task reaches a terminal state via an engine-driven transition", func() {
		It("signals exactly one work item completion", func() {
			t := currentTask()

			err := svc.Finalize(
				ctx,
				t.ID(),
				usertask.TransitionComplete,
				map[string]any{
					"approved": true,
				},
			)
			Expect(err).ShouldNot(HaveOccurred())

			// A second completion of the same work item would have failed
			// with an unknown work item error; reaching a clean completion
			// proves the process was signalled exactly once.
			ok, err := processes.Exists(ctx, inst.ID())
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("swallows signalling failures", func() {
			t := currentTask()
			resolver.Err = errors.New("<error>")

			err := svc.Finalize(ctx, t.ID(), usertask.TransitionComplete, nil)
			Expect(err).ShouldNot(HaveOccurred())
		})
	})

	When("the work item is completed directly on the process instance", func() {
		It("brings the task to a terminal state without looping", func() {
			wi := inst.WorkItems()[0]
			t := currentTask()

			err := inst.CompleteWorkItem(
				ctx,
				wi.ID,
				map[string]any{
					"approved": true,
				},
			)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(inst.Status()).To(Equal(process.Completed))

			// The task ended with the work item, so it is no longer stored.
			_, ok, err := svc.Get(ctx, t.ID())
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})

	When("the process instance is aborted", func() {
		It("marks the task obsolete", func() {
			t := currentTask()

			err := inst.Abort(ctx)
			Expect(err).ShouldNot(HaveOccurred())

			// Obsolete is terminal, so the task is no longer stored.
			_, ok, err := svc.Get(ctx, t.ID())
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})
})

func mustRegistry(hnd *Handler) *handler.Registry {
	r, err := handler.NewRegistry(logging.DiscardLogger{}, hnd)
	if err != nil {
		panic(err)
	}

	return r
}
