package schedule

import "github.com/conference-manager/meeting-publisher/internal/domain/entity"

// Dispatch is the unit of work sent to the remote scheduling service.
type Dispatch struct {
	Meeting entity.Meeting
	Host    entity.HostID
}

// Flatten lists the (meeting, host) pairs of an assignment.
// Per host order is preserved and hosts follow roster order, but dispatches are independent from each other.
func Flatten(a Assignment) []Dispatch {
	ret := make([]Dispatch, 0, a.Len())

	for _, host := range a.hosts {
		for _, meeting := range a.meetings[host] {
			ret = append(ret, Dispatch{Meeting: meeting, Host: host})
		}
	}

	return ret
}
