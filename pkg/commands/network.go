package commands

import (
	"context"
	"errors"

	"selfbot/pkg/dispatch"
	"selfbot/pkg/ipinfo"
)

func (s *Set) ipinfo(ctx context.Context, ev *dispatch.Event) error {
	if s.IPInfo == nil {
		return errors.New("ip lookup is not configured")
	}

	address := ev.Arg(1)
	result, err := s.IPInfo.Lookup(ctx, address)
	if err != nil {
		var lookupErr *ipinfo.LookupError
		if errors.As(err, &lookupErr) {
			return dispatch.Reply(s.format("ipinfo_error", lookupErr.Message), err)
		}
		return dispatch.Reply(s.format("ipinfo_error", err.Error()), err)
	}

	return ev.Edit(ctx, s.format("ipinfo_result",
		address,
		result.Country,
		result.City,
		result.ISP,
		result.Org,
		result.Lat,
		result.Lon,
		result.Timezone,
	))
}
