package usertask_test

import (
	"time"

	"github.com/enactiq/enact/process"
	. "github.com/enactiq/enact/usertask"
	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Codec", func() {
	It("round-trips a task instance", func() {
		task := NewInstance(
			&process.WorkItem{
				ID:                  "<work-item>",
				Name:                "<task>",
				ProcessInstanceID:   "<process-instance>",
				ProcessDefinitionID: "<process-definition>",
				Parameters: map[string]any{
					ParamTaskName:    "Approve Order",
					ParamDescription: "<description>",
					ParamPriority:    3,
					ParamActors:      "john, mary",
					ParamGroups:      "finance",
					ParamNotCompletedReassignments: []Reassignment{
						{
							Duration: 5 * time.Minute,
							Users:    []string{"alice"},
						},
					},
					"OrderID": "<order>",
				},
			},
		)

		_, err := task.AddComment("john", "<comment>")
		Expect(err).ShouldNot(HaveOccurred())

		_, err = task.AddAttachment("john", "<name>", "<uri>")
		Expect(err).ShouldNot(HaveOccurred())

		var codec Codec

		data, err := codec.MarshalInstance(task)
		Expect(err).ShouldNot(HaveOccurred())

		restored, err := codec.UnmarshalInstance(data)
		Expect(err).ShouldNot(HaveOccurred())

		Expect(cmp.Diff(
			task,
			restored,
			cmp.AllowUnexported(Instance{}),
		)).To(BeEmpty())
	})
})
