// internal/app/bootstrap/services.go
package bootstrap

import (
	"github.com/techradar/compass/internal/app/services/categorysvc"
	"github.com/techradar/compass/internal/app/services/groupsvc"
	"github.com/techradar/compass/internal/app/services/radarsvc"
	"github.com/techradar/compass/internal/app/services/solutionsvc"
	categorystore "github.com/techradar/compass/internal/app/store/categories"
	groupstore "github.com/techradar/compass/internal/app/store/groups"
	historystore "github.com/techradar/compass/internal/app/store/history"
	siteconfigstore "github.com/techradar/compass/internal/app/store/siteconfig"
	solutionstore "github.com/techradar/compass/internal/app/store/solutions"
	"github.com/techradar/compass/internal/app/system/history"
	"github.com/techradar/compass/internal/app/system/listcache"
	"github.com/techradar/compass/internal/app/system/workers"
	"github.com/techradar/compass/internal/domain/models"
	"go.uber.org/zap"
)

// groupCachePrefix namespaces the group list in a shared Redis.
const groupCachePrefix = "compass:groups"

// Services is the application layer shared by every handler.
type Services struct {
	Groups     *groupsvc.Service
	Radar      *radarsvc.Service
	Solutions  *solutionsvc.Service
	Categories *categorysvc.Service

	History    *historystore.Store
	SiteConfig *siteconfigstore.Store
	Recorder   *history.Recorder

	// Orphans is nil when reconcile_interval is 0.
	Orphans *workers.OrphanReconciler
}

func newServices(deps DBDeps, appCfg AppConfig, logger *zap.Logger) *Services {
	db := deps.MongoDatabase
	groups := groupstore.New(db)
	solutions := solutionstore.New(db)
	categories := categorystore.New(db)
	hist := historystore.New(db)
	rec := history.New(hist, logger.Named("history"), appCfg.HistoryLog)

	var cache listcache.Backend[[]models.Group]
	if deps.Redis != nil {
		cache = listcache.NewRedis[[]models.Group](deps.Redis, groupCachePrefix, appCfg.GroupCacheTTL)
	} else {
		cache = listcache.NewMemory[[]models.Group](appCfg.GroupCacheTTL, appCfg.GroupCacheMaxEntries)
	}

	groupSvc := groupsvc.New(groups, solutions, deps.Txn, groupsvc.Options{
		Cache:   cache,
		History: rec,
		Log:     logger.Named("groups"),
	})

	s := &Services{
		Groups:     groupSvc,
		Radar:      radarsvc.New(solutions, categories, logger.Named("radar")),
		Solutions:  solutionsvc.New(solutions, groupSvc, rec, logger.Named("solutions")),
		Categories: categorysvc.New(categories, solutions, deps.Txn, rec, logger.Named("categories")),
		History:    hist,
		SiteConfig: siteconfigstore.New(db),
		Recorder:   rec,
	}
	if appCfg.ReconcileInterval > 0 {
		s.Orphans = workers.NewOrphanReconciler(groupSvc, logger.Named("orphans"), appCfg.ReconcileInterval)
	}
	return s
}
