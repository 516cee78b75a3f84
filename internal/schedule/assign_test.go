package schedule_test

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conference-manager/meeting-publisher/internal/domain/entity"
	"github.com/conference-manager/meeting-publisher/internal/schedule"
)

func meeting(id string, start, end time.Time) entity.Meeting {
	return entity.Meeting{ID: id, EventID: "event", Name: "Meeting " + id, Start: start, End: end}
}

func ids(meetings []entity.Meeting) []string {
	ret := make([]string, 0, len(meetings))
	for _, m := range meetings {
		ret = append(ret, m.ID)
	}

	return ret
}

func byHost(a schedule.Assignment) map[entity.HostID][]string {
	ret := make(map[entity.HostID][]string)
	for _, host := range a.Hosts() {
		ret[host] = ids(a.Meetings(host))
	}

	return ret
}

func TestAssignScenarios(t *testing.T) {
	m1 := meeting("1", at(9, 0), at(10, 0))
	m2 := meeting("2", at(9, 30), at(10, 30))
	m3 := meeting("3", at(11, 0), at(12, 0))

	cases := []struct {
		name       string
		hosts      []entity.HostID
		meetings   []entity.Meeting
		expected   map[entity.HostID][]string
		unassigned []string
	}{
		{
			name:       "first fit in roster order",
			hosts:      []entity.HostID{"a@example.com", "b@example.com"},
			meetings:   []entity.Meeting{m1, m2, m3},
			expected:   map[entity.HostID][]string{"a@example.com": {"1", "3"}, "b@example.com": {"2"}},
			unassigned: []string{},
		},
		{
			name:       "no host",
			hosts:      nil,
			meetings:   []entity.Meeting{m1, m2, m3},
			expected:   map[entity.HostID][]string{},
			unassigned: []string{"1", "2", "3"},
		},
		{
			name:       "no meeting",
			hosts:      []entity.HostID{"a@example.com", "b@example.com"},
			meetings:   nil,
			expected:   map[entity.HostID][]string{"a@example.com": {}, "b@example.com": {}},
			unassigned: []string{},
		},
		{
			name:       "single host with overlapping meetings",
			hosts:      []entity.HostID{"a@example.com"},
			meetings:   []entity.Meeting{m1, m2},
			expected:   map[entity.HostID][]string{"a@example.com": {"1"}},
			unassigned: []string{"2"},
		},
		{
			name:  "identical windows split across hosts",
			hosts: []entity.HostID{"a@example.com", "b@example.com"},
			meetings: []entity.Meeting{
				meeting("x", at(9, 0), at(10, 0)),
				meeting("y", at(9, 0), at(10, 0)),
				meeting("z", at(9, 0), at(10, 0)),
			},
			expected:   map[entity.HostID][]string{"a@example.com": {"x"}, "b@example.com": {"y"}},
			unassigned: []string{"z"},
		},
		{
			name:  "back to back meetings share a host",
			hosts: []entity.HostID{"a@example.com"},
			meetings: []entity.Meeting{
				meeting("x", at(9, 0), at(10, 0)),
				meeting("y", at(10, 0), at(11, 0)),
			},
			expected:   map[entity.HostID][]string{"a@example.com": {"x", "y"}},
			unassigned: []string{},
		},
		{
			name:       "duplicated host counts once",
			hosts:      []entity.HostID{"a@example.com", "a@example.com"},
			meetings:   []entity.Meeting{m1, m2},
			expected:   map[entity.HostID][]string{"a@example.com": {"1"}},
			unassigned: []string{"2"},
		},
		{
			name:       "placement follows input order, not start time",
			hosts:      []entity.HostID{"a@example.com"},
			meetings:   []entity.Meeting{m3, m1},
			expected:   map[entity.HostID][]string{"a@example.com": {"3", "1"}},
			unassigned: []string{},
		},
	}

	for i := range cases {
		c := cases[i]

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			assignment, unassigned := schedule.Assign(c.hosts, c.meetings)

			if diff := cmp.Diff(c.expected, byHost(assignment)); diff != "" {
				t.Errorf("unexpected assignment (-want +got):\n%s", diff)
			}

			assert.Equal(t, c.unassigned, ids(unassigned), "unassigned meetings")
		})
	}
}

func TestAssignDoesNotModifyInputs(t *testing.T) {
	hosts := []entity.HostID{"a@example.com", "b@example.com"}
	meetings := []entity.Meeting{
		meeting("1", at(9, 0), at(10, 0)),
		meeting("2", at(9, 0), at(10, 0)),
	}

	hostsCopy := append([]entity.HostID{}, hosts...)
	meetingsCopy := append([]entity.Meeting{}, meetings...)

	assignment, _ := schedule.Assign(hosts, meetings)

	assert.Equal(t, hostsCopy, hosts)
	assert.Equal(t, meetingsCopy, meetings)

	// Returned slices are copies
	placed := assignment.Meetings("a@example.com")
	placed[0].Name = "changed"
	assert.Equal(t, "Meeting 1", assignment.Meetings("a@example.com")[0].Name)
}

// Random rosters and meetings, checking the contract of the greedy scan instead of exact outputs.
func TestAssignProperties(t *testing.T) {
	random := rand.New(rand.NewSource(42))

	for run := 0; run < 200; run++ {
		hosts := make([]entity.HostID, random.Intn(5))
		for i := range hosts {
			hosts[i] = entity.HostID(fmt.Sprintf("host-%d@example.com", i))
		}

		meetings := make([]entity.Meeting, random.Intn(30))
		for i := range meetings {
			start := at(8, 0).Add(time.Duration(random.Intn(40)) * 15 * time.Minute)
			end := start.Add(time.Duration(1+random.Intn(8)) * 15 * time.Minute)
			meetings[i] = meeting(fmt.Sprintf("%d", i), start, end)
		}

		assignment, unassigned := schedule.Assign(hosts, meetings)

		// Same inputs, same outputs
		again, againUnassigned := schedule.Assign(hosts, meetings)
		require.Equal(t, byHost(assignment), byHost(again), "run %d: assignment is not deterministic", run)
		require.Equal(t, ids(unassigned), ids(againUnassigned), "run %d: unassigned is not deterministic", run)

		// Every meeting is either placed or unassigned
		require.Equal(t, len(meetings), assignment.Len()+len(unassigned), "run %d: meetings lost", run)

		// No overlap on a host
		for _, host := range assignment.Hosts() {
			placed := assignment.Meetings(host)
			for i := range placed {
				for j := i + 1; j < len(placed); j++ {
					require.False(t, schedule.WindowOf(placed[i]).Overlaps(schedule.WindowOf(placed[j])),
						"run %d: %s and %s overlap on %s", run, placed[i].ID, placed[j].ID, host)
				}
			}
		}

		// An unassigned meeting conflicts with every host of the final assignment
		for _, m := range unassigned {
			for _, host := range assignment.Hosts() {
				conflict := false
				for _, placed := range assignment.Meetings(host) {
					if schedule.WindowOf(placed).Overlaps(schedule.WindowOf(m)) {
						conflict = true

						break
					}
				}

				require.True(t, conflict, "run %d: meeting %s fits on %s", run, m.ID, host)
			}
		}
	}
}
