package services

import (
  "context"
  "fmt"
  "testing"
  "time"
  "github.com/google/uuid"
  "gorm.io/driver/sqlite"
  "gorm.io/gorm"
  gormlogger "gorm.io/gorm/logger"
  "github.com/campusfind/backend/internal/logger"
  "github.com/campusfind/backend/internal/repos"
  "github.com/campusfind/backend/internal/types"
)

// newTestDB opens an isolated in-memory database for one test. A single
// connection keeps concurrent writers serialized instead of tripping
// SQLITE_BUSY.
func newTestDB(t *testing.T) *gorm.DB {
  t.Helper()
  dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
  db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
    Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
    TranslateError: true,
  })
  if err != nil {
    t.Fatalf("open sqlite: %v", err)
  }
  sqlDB, err := db.DB()
  if err != nil {
    t.Fatalf("unwrap sql.DB: %v", err)
  }
  sqlDB.SetMaxOpenConns(1)
  if err := db.AutoMigrate(
    &types.User{},
    &types.UserToken{},
    &types.Item{},
    &types.Claim{},
    &types.VerificationToken{},
    &types.TrustLedgerEntry{},
    &types.MatchCandidate{},
  ); err != nil {
    t.Fatalf("migrate: %v", err)
  }
  t.Cleanup(func() { sqlDB.Close() })
  return db
}

func newTestLogger(t *testing.T) *logger.Logger {
  t.Helper()
  log, err := logger.New("development")
  if err != nil {
    t.Fatalf("init logger: %v", err)
  }
  return log
}

type testEnv struct {
  db           *gorm.DB
  log          *logger.Logger
  userRepo     repos.UserRepo
  itemRepo     repos.ItemRepo
  claimRepo    repos.ClaimRepo
  tokenRepo    repos.VerificationTokenRepo
  ledgerRepo   repos.TrustLedgerRepo
  matchRepo    repos.MatchCandidateRepo
  trust        TrustScoreService
  verification VerificationService
  claims       ClaimService
  items        ItemService
  matches      MatchService
}

func newTestEnv(t *testing.T) *testEnv {
  t.Helper()
  db := newTestDB(t)
  log := newTestLogger(t)
  env := &testEnv{
    db:         db,
    log:        log,
    userRepo:   repos.NewUserRepo(db, log),
    itemRepo:   repos.NewItemRepo(db, log),
    claimRepo:  repos.NewClaimRepo(db, log),
    tokenRepo:  repos.NewVerificationTokenRepo(db, log),
    ledgerRepo: repos.NewTrustLedgerRepo(db, log),
    matchRepo:  repos.NewMatchCandidateRepo(db, log),
  }
  env.trust = NewTrustScoreService(db, log, env.ledgerRepo)
  env.verification = NewVerificationService(db, log, env.claimRepo, env.tokenRepo, 24*time.Hour)
  env.matches = NewMatchService(db, log, env.itemRepo, env.matchRepo, NewFeatureMatcher(log), NewClaimNotifier(log, nil))
  env.items = NewItemService(db, log, env.itemRepo, env.claimRepo, env.trust, env.matches)
  env.claims = NewClaimService(db, log, env.itemRepo, env.claimRepo, env.userRepo, env.verification, env.trust, NewClaimNotifier(log, nil))
  return env
}

func (env *testEnv) createUser(t *testing.T, name string) *types.User {
  t.Helper()
  user := &types.User{
    ID:       uuid.New(),
    Email:    fmt.Sprintf("%s-%s@campus.test", name, uuid.New().String()[:8]),
    Name:     name,
    Password: "hashed",
  }
  if _, err := env.userRepo.Create(context.Background(), nil, []*types.User{user}); err != nil {
    t.Fatalf("create user %s: %v", name, err)
  }
  return user
}

func (env *testEnv) createItem(t *testing.T, ownerID uuid.UUID, itemType string) *types.Item {
  t.Helper()
  item := &types.Item{
    ID:          uuid.New(),
    UserID:      ownerID,
    Type:        itemType,
    Description: "black backpack with laptop sleeve",
    Location:    "library",
    Category:    "bag",
    Color:       "black",
    Status:      types.ItemStatusUnresolved,
    ReportedAt:  time.Now(),
  }
  if _, err := env.itemRepo.Create(context.Background(), nil, []*types.Item{item}); err != nil {
    t.Fatalf("create item: %v", err)
  }
  return item
}

func (env *testEnv) submitClaim(t *testing.T, itemID, claimantID uuid.UUID) *types.Claim {
  t.Helper()
  claim, err := env.claims.Submit(context.Background(), itemID, claimantID, "that is mine")
  if err != nil {
    t.Fatalf("submit claim: %v", err)
  }
  return claim
}

func futureMeeting() *time.Time {
  ts := time.Now().Add(2 * time.Hour)
  return &ts
}
