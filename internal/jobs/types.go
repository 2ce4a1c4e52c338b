package jobs

type JobType string

const (
	// JobWelcomeEmail greets a newly signed-up identity.
	JobWelcomeEmail JobType = "user.welcome"
)

func (t JobType) IsValid() bool {
	switch t {
	case JobWelcomeEmail:
		return true
	default:
		return false
	}
}
