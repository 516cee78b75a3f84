package host

import (
	"context"

	"github.com/valkey-io/valkey-go"

	"github.com/conference-manager/meeting-publisher/internal/common"
	"github.com/conference-manager/meeting-publisher/internal/domain/entity"
	"github.com/conference-manager/meeting-publisher/internal/domain/repo"
)

const (
	categoryInternalError = "valkey_internal_error"

	DefaultKey = "hosts"
)

var _ repo.HostRoster = ValkeyRepo{}

// ValkeyRepo reads the roster from a valkey list. The list order is the order hosts are filled in.
type ValkeyRepo struct {
	client valkey.Client
	key    string
}

func NewValkeyRepo(client valkey.Client, key string) ValkeyRepo {
	if key == "" {
		key = DefaultKey
	}

	return ValkeyRepo{
		client: client,
		key:    key,
	}
}

func (r ValkeyRepo) GetAll(ctx context.Context) ([]entity.HostID, error) {
	command := r.client.B().Lrange().Key(r.key).Start(0).Stop(-1).Build()

	resp := r.client.Do(ctx, command)

	err := resp.Error()
	if err != nil {
		return nil, common.NewValkeyError(err, "failed to get host roster")
	}

	result, err := resp.AsStrSlice()
	if err != nil {
		return nil, common.NewErrProcessingError(err, categoryInternalError, nil, "unexpected lrange response type for %s", r.key)
	}

	ret := make([]entity.HostID, 0, len(result))
	for _, host := range result {
		ret = append(ret, entity.HostID(host))
	}

	return ret, nil
}

// Add appends hosts at the end of the roster.
func (r ValkeyRepo) Add(ctx context.Context, hosts ...entity.HostID) error {
	if len(hosts) == 0 {
		return nil
	}

	elements := make([]string, 0, len(hosts))
	for _, host := range hosts {
		elements = append(elements, string(host))
	}

	command := r.client.B().Rpush().Key(r.key).Element(elements...).Build()

	err := r.client.Do(ctx, command).Error()
	if err != nil {
		return common.NewValkeyError(err, "failed to add hosts")
	}

	return nil
}
