package identity_test

import (
	. "github.com/enactiq/enact/identity"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("func Authorize()", func() {
	It("authorizes a potential owner with no roles", func() {
		err := Authorize(
			"<task>",
			Authorization{
				PotentialUsers: "john",
			},
			Identity{Name: "john"},
		)

		Expect(err).ShouldNot(HaveOccurred())
	})

	It("rejects an identity that is neither an owner nor a group member", func() {
		err := Authorize(
			"<task>",
			Authorization{
				PotentialUsers:  "mary",
				PotentialGroups: "finance",
			},
			Identity{Name: "john"},
		)

		Expect(err).To(Equal(
			NotAuthorizedError{
				TaskID:   "<task>",
				Identity: Identity{Name: "john"},
			},
		))
	})

	It("authorizes an identity via group membership", func() {
		err := Authorize(
			"<task>",
			Authorization{
				PotentialUsers:  "mary",
				PotentialGroups: "finance,hr",
			},
			Identity{
				Name:  "john",
				Roles: []string{"hr"},
			},
		)

		Expect(err).ShouldNot(HaveOccurred())
	})

	It("rejects an excluded user even if they are a potential owner", func() {
		err := Authorize(
			"<task>",
			Authorization{
				PotentialUsers: "john,mary",
				ExcludedUsers:  "john",
			},
			Identity{Name: "john"},
		)

		Expect(err).To(HaveOccurred())
	})

	It("removes each entry in the exclusion list from the owner set", func() {
		auth := Authorization{
			PotentialUsers: "john,mary,sue",
			ExcludedUsers:  "john,sue",
		}

		err := Authorize("<task>", auth, Identity{Name: "sue"})
		Expect(err).To(HaveOccurred())

		err = Authorize("<task>", auth, Identity{Name: "mary"})
		Expect(err).ShouldNot(HaveOccurred())
	})

	It("reports the claiming owner when the task is claimed by somebody else", func() {
		err := Authorize(
			"<task>",
			Authorization{
				ActualOwner:    "mary",
				PotentialUsers: "mary",
			},
			Identity{Name: "john"},
		)

		Expect(err).To(Equal(
			NotAuthorizedError{
				TaskID:   "<task>",
				Identity: Identity{Name: "john"},
				Owner:    "mary",
			},
		))
		Expect(err.Error()).To(ContainSubstring("already claimed by 'mary'"))
	})

	It("treats a task with no ownership information as open access", func() {
		err := Authorize(
			"<task>",
			Authorization{},
			Identity{Name: "anyone"},
		)

		Expect(err).ShouldNot(HaveOccurred())
	})

	It("ignores whitespace and empty entries in the lists", func() {
		err := Authorize(
			"<task>",
			Authorization{
				PotentialUsers: " mary , john ,",
			},
			Identity{Name: "john"},
		)

		Expect(err).ShouldNot(HaveOccurred())
	})
})
