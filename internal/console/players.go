package console

import (
	"context"
	"strconv"
	"strings"

	"github.com/turtacn/nightowl/pkg/consts"
	"github.com/turtacn/nightowl/pkg/errors"
)

// Executor is the subset of Client needed to query occupancy.
type Executor interface {
	Execute(ctx context.Context, cmd string) (string, error)
}

// ParsePlayerCount extracts the online count from a "list" response such as
// "There are 3 of a max of 20 players online: a, b, c" or the older
// "There are 3/20 players online:". The count is the leading digits of the
// third whitespace-separated word.
func ParsePlayerCount(resp string) (int, error) {
	fields := strings.Fields(resp)
	if len(fields) < 3 {
		return 0, errors.New(errors.ErrCodeOccupancyParse, "ParsePlayerCount", "unexpected list response: "+strconv.Quote(resp), nil)
	}
	word := fields[2]
	end := 0
	for end < len(word) && word[end] >= '0' && word[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, errors.New(errors.ErrCodeOccupancyParse, "ParsePlayerCount", "no player count in list response: "+strconv.Quote(resp), nil)
	}
	n, err := strconv.Atoi(word[:end])
	if err != nil {
		return 0, errors.New(errors.ErrCodeOccupancyParse, "ParsePlayerCount", "player count out of range", err)
	}
	return n, nil
}

// PlayerCount issues "list" and parses the response.
func PlayerCount(ctx context.Context, ex Executor) (int, error) {
	resp, err := ex.Execute(ctx, consts.CmdList)
	if err != nil {
		return 0, err
	}
	return ParsePlayerCount(resp)
}

// Personal.AI order the ending
