package job

import (
	"context"
	"testing"
	"time"

	"pujaledger/internal/logging"
	"pujaledger/internal/model"
	"pujaledger/internal/service"
	"pujaledger/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileJob_ReportsDriftWithoutFixing(t *testing.T) {
	db := testutil.NewDB(t)
	rdb, mr := testutil.NewRedis(t)
	ctx := context.Background()

	member := &model.Member{Name: "Drift", Role: model.MemberRoleUser, Active: true, Contribution: 250, JoiningDate: time.Now()}
	require.NoError(t, db.Create(member).Error)

	job := NewReconcileJob(service.NewReconcileService(db, nil, logging.Nop()), rdb, 0, logging.Nop())
	assert.Equal(t, 1, job.runOnce(ctx))

	var reloaded model.Member
	require.NoError(t, db.First(&reloaded, member.ID).Error)
	assert.Equal(t, int64(250), reloaded.Contribution)
	assert.False(t, mr.Exists("puja:lock:reconcile"))

	require.NoError(t, mr.Set("puja:lock:reconcile", "other"))
	assert.Equal(t, -1, job.runOnce(ctx))
}
