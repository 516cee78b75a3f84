package host

import (
	"context"

	"github.com/conference-manager/meeting-publisher/internal/domain/entity"
	"github.com/conference-manager/meeting-publisher/internal/domain/repo"
)

var _ repo.HostRoster = StaticRoster{}

// StaticRoster serves a roster fixed at startup.
type StaticRoster struct {
	hosts []entity.HostID
}

func NewStaticRoster(hosts []string) StaticRoster {
	ret := make([]entity.HostID, 0, len(hosts))
	for _, host := range hosts {
		ret = append(ret, entity.HostID(host))
	}

	return StaticRoster{hosts: ret}
}

func (r StaticRoster) GetAll(context.Context) ([]entity.HostID, error) {
	ret := make([]entity.HostID, len(r.hosts))
	copy(ret, r.hosts)

	return ret, nil
}
