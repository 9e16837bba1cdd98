package sentlog_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyhub/deadline-reminders/internal/domain"
	"github.com/notifyhub/deadline-reminders/internal/sentlog"
)

func rec(i int) domain.SentRecord {
	return domain.SentRecord{Key: fmt.Sprintf("k%d", i), Success: true}
}

func TestLog_MostRecentFirst(t *testing.T) {
	l := sentlog.New(10)
	for i := 1; i <= 3; i++ {
		l.Append(rec(i))
	}

	got := l.Entries()
	require.Len(t, got, 3)
	assert.Equal(t, "k3", got[0].Key)
	assert.Equal(t, "k1", got[2].Key)
}

func TestLog_EvictsOldestAtCapacity(t *testing.T) {
	l := sentlog.New(sentlog.DefaultCapacity)
	for i := 1; i <= sentlog.DefaultCapacity; i++ {
		l.Append(rec(i))
	}
	require.Equal(t, 200, l.Len())
	assert.Equal(t, "k1", l.Entries()[199].Key)

	l.Append(rec(201))

	got := l.Entries()
	assert.Len(t, got, 200, "log never exceeds its capacity")
	assert.Equal(t, "k201", got[0].Key)
	assert.Equal(t, "k2", got[199].Key, "the 201st insertion evicts the oldest entry")
}

func TestLog_Clear(t *testing.T) {
	l := sentlog.New(2)
	l.Append(rec(1))
	l.Append(rec(2))
	l.Append(rec(3))
	l.Clear()
	assert.Empty(t, l.Entries())

	l.Append(rec(4))
	assert.Equal(t, []domain.SentRecord{rec(4)}, l.Entries())
}

func TestLog_DefaultCapacity(t *testing.T) {
	assert.Equal(t, sentlog.DefaultCapacity, sentlog.New(0).Cap())
}
