package session

import (
	"testing"
	"time"

	"authflow/internal/types"

	"github.com/stretchr/testify/assert"
)

func TestGreeting(t *testing.T) {
	ann := types.Profile{FirstName: "Ann", LastName: "Lee"}
	at := func(hour int) time.Time { return time.Date(2024, 11, 8, hour, 30, 0, 0, time.UTC) }

	testCases := []struct {
		hour int
		want string
	}{
		{4, "Good evening, Ann Lee"},
		{5, "Good morning, Ann Lee"},
		{11, "Good morning, Ann Lee"},
		{12, "Good afternoon, Ann Lee"},
		{17, "Good afternoon, Ann Lee"},
		{18, "Good evening, Ann Lee"},
		{23, "Good evening, Ann Lee"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, Greeting(at(tc.hour), ann), "hour %d", tc.hour)
	}

	assert.Equal(t, "Good morning", Greeting(at(9), types.Profile{}))
	assert.Equal(t, "", Snapshot{}.Greeting(at(9)))
}
