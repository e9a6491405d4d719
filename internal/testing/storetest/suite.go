// Package storetest declares generic behavioral tests that every instance
// store implementation must pass.
package storetest

import (
	"context"
	"time"

	"github.com/enactiq/enact/fixtures"
	"github.com/enactiq/enact/persistence"
	"github.com/onsi/ginkgo"
	"github.com/onsi/gomega"
)

// Out is a container for values that are provided by the store-specific
// "before" function to the test-suite.
type Out struct {
	// Store is the store to be tested.
	Store persistence.Store[*fixtures.StubInstance]

	// TestTimeout is the maximum duration allowed for each test.
	TestTimeout time.Duration

	// EventuallyConsistent indicates that a write is not guaranteed to be
	// observed by an immediately subsequent read.
	EventuallyConsistent bool
}

// DefaultTestTimeout is the default test timeout.
const DefaultTestTimeout = 3 * time.Second

// Declare declares generic behavioral tests for a specific store
// implementation.
func Declare(
	before func(context.Context) Out,
	after func(),
) {
	var (
		ctx    context.Context
		cancel func()
		out    Out
	)

	ginkgo.BeforeEach(func() {
		setupCtx, cancelSetup := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelSetup()

		out = before(setupCtx)

		if out.TestTimeout <= 0 {
			out.TestTimeout = DefaultTestTimeout
		}

		ctx, cancel = context.WithTimeout(context.Background(), out.TestTimeout)
	})

	ginkgo.AfterEach(func() {
		if after != nil {
			after()
		}

		cancel()
	})

	// expectStored waits until the given ID is (or is not) observable in the
	// store, immediately for strongly consistent stores.
	expectStored := func(id string, stored bool) {
		if out.EventuallyConsistent {
			gomega.Eventually(func() (bool, error) {
				return out.Store.Exists(ctx, id)
			}).Should(gomega.Equal(stored))
			return
		}

		ok, err := out.Store.Exists(ctx, id)
		gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		gomega.Expect(ok).To(gomega.Equal(stored))
	}

	ginkgo.Describe("func Create()", func() {
		ginkgo.It("stores the instance", func() {
			inst := fixtures.NewStubInstance("<instance>")

			err := out.Store.Create(ctx, inst.ID, inst)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			expectStored("<instance>", true)
		})

		ginkgo.It("does not store an instance that has already ended", func() {
			inst := fixtures.NewStubInstance("<ended>")
			inst.Terminal = true

			err := out.Store.Create(ctx, inst.ID, inst)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			if out.EventuallyConsistent {
				gomega.Consistently(func() (bool, error) {
					return out.Store.Exists(ctx, inst.ID)
				}).Should(gomega.BeFalse())
			} else {
				expectStored(inst.ID, false)
			}
		})

		ginkgo.It("returns a duplicate error if the ID is already in use", func() {
			inst := fixtures.NewStubInstance("<instance>")

			err := out.Store.Create(ctx, inst.ID, inst)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			expectStored(inst.ID, true)

			err = out.Store.Create(ctx, inst.ID, inst)
			gomega.Expect(err).To(gomega.Equal(
				persistence.DuplicateError{ID: inst.ID},
			))
		})

		ginkgo.It("rejects a read-only handle", func() {
			inst := fixtures.NewStubInstance("<instance>").Clone(persistence.ReadOnly)

			err := out.Store.Create(ctx, inst.ID, inst)
			gomega.Expect(err).To(gomega.Equal(persistence.ErrReadOnly))
		})
	})

	ginkgo.Describe("func Update()", func() {
		ginkgo.It("overwrites the stored representation", func() {
			inst := fixtures.NewStubInstance("<instance>")

			err := out.Store.Create(ctx, inst.ID, inst)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			inst.Description = "<updated>"

			err = out.Store.Update(ctx, inst.ID, inst)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			if out.EventuallyConsistent {
				gomega.Eventually(func() string {
					f, ok, err := out.Store.Find(ctx, inst.ID, persistence.Mutable)
					if err != nil || !ok {
						return ""
					}
					return f.Description
				}).Should(gomega.Equal("<updated>"))
			} else {
				f, ok, err := out.Store.Find(ctx, inst.ID, persistence.Mutable)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeTrue())
				gomega.Expect(f.Description).To(gomega.Equal("<updated>"))
			}
		})

		ginkgo.It("removes the stored representation if the instance has ended", func() {
			inst := fixtures.NewStubInstance("<instance>")

			err := out.Store.Create(ctx, inst.ID, inst)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			expectStored(inst.ID, true)

			inst.Terminal = true

			err = out.Store.Update(ctx, inst.ID, inst)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			expectStored(inst.ID, false)
		})

		ginkgo.It("rejects a read-only handle", func() {
			inst := fixtures.NewStubInstance("<instance>").Clone(persistence.ReadOnly)

			err := out.Store.Update(ctx, inst.ID, inst)
			gomega.Expect(err).To(gomega.Equal(persistence.ErrReadOnly))
		})
	})

	ginkgo.Describe("func Remove()", func() {
		ginkgo.It("removes the instance", func() {
			inst := fixtures.NewStubInstance("<instance>")

			err := out.Store.Create(ctx, inst.ID, inst)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			expectStored(inst.ID, true)

			err = out.Store.Remove(ctx, inst.ID)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			expectStored(inst.ID, false)

			_, ok, err := out.Store.Find(ctx, inst.ID, persistence.Mutable)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeFalse())
		})

		ginkgo.It("is idempotent", func() {
			err := out.Store.Remove(ctx, "<unknown>")
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			err = out.Store.Remove(ctx, "<unknown>")
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("func Find()", func() {
		ginkgo.It("returns an absent result for an unknown ID", func() {
			_, ok, err := out.Store.Find(ctx, "<unknown>", persistence.Mutable)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeFalse())
		})

		ginkgo.It("round-trips the instance payload", func() {
			inst := fixtures.NewStubInstance("<instance>")

			err := out.Store.Create(ctx, inst.ID, inst)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			expectStored(inst.ID, true)

			f, ok, err := out.Store.Find(ctx, inst.ID, persistence.Mutable)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(f.Payload).To(gomega.Equal(inst.Payload))
			gomega.Expect(f.Meta()).To(gomega.Equal(inst.Meta()))
		})

		ginkgo.It("returns a read-only handle in read-only mode", func() {
			inst := fixtures.NewStubInstance("<instance>")

			err := out.Store.Create(ctx, inst.ID, inst)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			expectStored(inst.ID, true)

			f, ok, err := out.Store.Find(ctx, inst.ID, persistence.ReadOnly)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(f.ReadOnly()).To(gomega.BeTrue())

			err = out.Store.Update(ctx, f.ID, f)
			gomega.Expect(err).To(gomega.Equal(persistence.ErrReadOnly))
		})

		ginkgo.It("returns an independent copy of the instance", func() {
			inst := fixtures.NewStubInstance("<instance>")

			err := out.Store.Create(ctx, inst.ID, inst)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			expectStored(inst.ID, true)

			a, _, err := out.Store.Find(ctx, inst.ID, persistence.Mutable)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			a.Payload["test"] = "<modified>"

			b, _, err := out.Store.Find(ctx, inst.ID, persistence.Mutable)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(b.Payload["test"]).To(gomega.Equal("value"))
		})
	})

	ginkgo.Describe("func Each()", func() {
		ginkgo.It("visits each stored instance once", func() {
			for _, id := range []string{"<instance-0>", "<instance-1>", "<instance-2>"} {
				inst := fixtures.NewStubInstance(id)
				err := out.Store.Create(ctx, inst.ID, inst)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				expectStored(id, true)
			}

			seen := map[string]int{}
			err := out.Store.Each(
				ctx,
				persistence.ReadOnly,
				func(inst *fixtures.StubInstance) (bool, error) {
					seen[inst.ID]++
					return true, nil
				},
			)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(seen).To(gomega.Equal(
				map[string]int{
					"<instance-0>": 1,
					"<instance-1>": 1,
					"<instance-2>": 1,
				},
			))
		})

		ginkgo.It("stops the iteration if fn returns false", func() {
			for _, id := range []string{"<instance-0>", "<instance-1>"} {
				inst := fixtures.NewStubInstance(id)
				err := out.Store.Create(ctx, inst.ID, inst)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				expectStored(id, true)
			}

			count := 0
			err := out.Store.Each(
				ctx,
				persistence.ReadOnly,
				func(*fixtures.StubInstance) (bool, error) {
					count++
					return false, nil
				},
			)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(count).To(gomega.Equal(1))
		})
	})
}
