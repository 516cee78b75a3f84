package schedule

import "github.com/conference-manager/meeting-publisher/internal/domain/entity"

// Assignment maps every host of a roster to the meetings placed on it.
// No two meetings of the same host overlap.
type Assignment struct {
	hosts    []entity.HostID
	meetings map[entity.HostID][]entity.Meeting
}

// Hosts returns the hosts in roster order.
func (a Assignment) Hosts() []entity.HostID {
	ret := make([]entity.HostID, len(a.hosts))
	copy(ret, a.hosts)

	return ret
}

// Meetings returns the meetings placed on host, in placement order.
func (a Assignment) Meetings(host entity.HostID) []entity.Meeting {
	placed := a.meetings[host]

	ret := make([]entity.Meeting, len(placed))
	copy(ret, placed)

	return ret
}

// Len returns the number of placed meetings.
func (a Assignment) Len() int {
	ret := 0

	for _, placed := range a.meetings {
		ret += len(placed)
	}

	return ret
}

/*
 * Assign partitions meetings across hosts with a greedy first fit:
 *
 *   - meetings are considered in input order
 *   - each meeting goes to the first host (roster order) where it overlaps none of the already placed meetings
 *   - a meeting no host accepts is returned in the unassigned list and never retried
 *
 * The result is deterministic and conflict free but not minimal in unassigned meetings.
 * Inputs are not modified. Duplicated hosts only count once.
 */
func Assign(hosts []entity.HostID, meetings []entity.Meeting) (Assignment, []entity.Meeting) {
	ret := Assignment{
		hosts:    make([]entity.HostID, 0, len(hosts)),
		meetings: make(map[entity.HostID][]entity.Meeting, len(hosts)),
	}

	for _, host := range hosts {
		if _, seen := ret.meetings[host]; seen {
			continue
		}

		ret.hosts = append(ret.hosts, host)
		ret.meetings[host] = []entity.Meeting{}
	}

	unassigned := make([]entity.Meeting, 0)

	for _, meeting := range meetings {
		host, ok := ret.firstFit(meeting)
		if !ok {
			unassigned = append(unassigned, meeting)

			continue
		}

		ret.meetings[host] = append(ret.meetings[host], meeting)
	}

	return ret, unassigned
}

func (a Assignment) firstFit(candidate entity.Meeting) (entity.HostID, bool) {
	window := WindowOf(candidate)

	for _, host := range a.hosts {
		if accepts(a.meetings[host], window) {
			return host, true
		}
	}

	return "", false
}

func accepts(placed []entity.Meeting, window Window) bool {
	for _, existing := range placed {
		if WindowOf(existing).Overlaps(window) {
			return false
		}
	}

	return true
}
