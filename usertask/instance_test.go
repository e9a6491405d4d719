package usertask_test

import (
	"github.com/enactiq/enact/persistence"
	"github.com/enactiq/enact/process"
	. "github.com/enactiq/enact/usertask"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Instance", func() {
	var task *Instance

	BeforeEach(func() {
		task = NewInstance(
			&process.WorkItem{
				ID:                  "<work-item>",
				Name:                "<node-name>",
				ProcessInstanceID:   "<process-instance>",
				ProcessDefinitionID: "<process-definition>",
				Parameters: map[string]any{
					ParamTaskName:      "Approve Order",
					ParamDescription:   "<description>",
					ParamPriority:      3,
					ParamActors:        "john, mary",
					ParamGroups:        "finance",
					ParamExcludedUsers: "eve",
					"OrderID":          "<order>",
				},
			},
		)
	})

	Describe("func NewInstance()", func() {
		It("copies task metadata from the work item's reserved parameters", func() {
			Expect(task.TaskName()).To(Equal("Approve Order"))
			Expect(task.Description()).To(Equal("<description>"))
			Expect(task.Priority()).To(Equal(3))
			Expect(task.PotentialUsers()).To(Equal([]string{"john", "mary"}))
			Expect(task.PotentialGroups()).To(Equal([]string{"finance"}))
			Expect(task.ExcludedUsers()).To(Equal([]string{"eve"}))
		})

		It("links the task to its work item", func() {
			Expect(task.ExternalReferenceID()).To(Equal("<work-item>"))
			Expect(task.ProcessInstanceID()).To(Equal("<process-instance>"))
			Expect(task.ProcessDefinitionID()).To(Equal("<process-definition>"))
		})

		It("copies the remaining parameters as inputs", func() {
			Expect(task.Inputs()).To(Equal(
				map[string]any{
					"OrderID": "<order>",
				},
			))
		})

		It("begins in the Created state with no owner", func() {
			Expect(task.State()).To(Equal(Created))
			Expect(task.ActualOwner()).To(BeEmpty())
			Expect(task.Ended()).To(BeFalse())
		})

		It("defaults the task name to the work item name", func() {
			t := NewInstance(
				&process.WorkItem{
					ID:   "<work-item>",
					Name: "<node-name>",
				},
			)

			Expect(t.TaskName()).To(Equal("<node-name>"))
		})
	})

	Describe("func AddComment()", func() {
		It("adds an authored, timestamped comment", func() {
			c, err := task.AddComment("john", "<comment>")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(c.ID).NotTo(BeEmpty())
			Expect(c.Author).To(Equal("john"))
			Expect(c.CreatedAt).NotTo(BeZero())

			Expect(task.Comments()).To(HaveLen(1))
		})
	})

	Describe("func UpdateComment()", func() {
		It("replaces the comment's content", func() {
			c, err := task.AddComment("john", "<comment>")
			Expect(err).ShouldNot(HaveOccurred())

			ok, err := task.UpdateComment(c.ID, "<updated>")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(task.Comments()[0].Content).To(Equal("<updated>"))
		})

		It("returns an absent result if the comment does not exist", func() {
			ok, err := task.UpdateComment("<unknown>", "<updated>")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})

	Describe("func RemoveComment()", func() {
		It("removes the comment", func() {
			c, err := task.AddComment("john", "<comment>")
			Expect(err).ShouldNot(HaveOccurred())

			err = task.RemoveComment(c.ID)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(task.Comments()).To(BeEmpty())
		})

		It("is idempotent", func() {
			err := task.RemoveComment("<unknown>")
			Expect(err).ShouldNot(HaveOccurred())
		})
	})

	Describe("func AddAttachment()", func() {
		It("adds an authored, timestamped attachment", func() {
			a, err := task.AddAttachment("john", "<name>", "file:///tmp/doc.pdf")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(a.ID).NotTo(BeEmpty())
			Expect(a.URI).To(Equal("file:///tmp/doc.pdf"))

			Expect(task.Attachments()).To(HaveLen(1))
		})
	})

	Describe("func UpdateAttachment()", func() {
		It("returns an absent result if the attachment does not exist", func() {
			ok, err := task.UpdateAttachment("<unknown>", "<name>", "<uri>")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})

	Describe("func RemoveAttachment()", func() {
		It("is idempotent", func() {
			err := task.RemoveAttachment("<unknown>")
			Expect(err).ShouldNot(HaveOccurred())
		})
	})

	Describe("func Clone()", func() {
		It("returns a read-only handle that rejects mutation", func() {
			ro := task.Clone(persistence.ReadOnly)
			Expect(ro.ReadOnly()).To(BeTrue())

			_, err := ro.AddComment("john", "<comment>")
			Expect(err).To(Equal(persistence.ErrReadOnly))

			_, err = ro.AddAttachment("john", "<name>", "<uri>")
			Expect(err).To(Equal(persistence.ErrReadOnly))
		})

		It("returns an independent copy", func() {
			c := task.Clone(persistence.Mutable)

			_, err := c.AddComment("john", "<comment>")
			Expect(err).ShouldNot(HaveOccurred())

			Expect(task.Comments()).To(BeEmpty())
		})
	})

	Describe("func Meta()", func() {
		It("exposes the description and state", func() {
			Expect(task.Meta()).To(Equal(
				persistence.Metadata{
					Description: "<description>",
					Status:      "Created",
				},
			))
		})
	})
})
