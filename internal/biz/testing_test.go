package biz

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SunshineAppV2/cantinhomda-sub002/internal/constants"
)

// fixedClock 固定时间源，测试可确定性回放
type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

// fakeTenantRepo 内存租户仓库，复刻存储层的原子条件更新语义
type fakeTenantRepo struct {
	mu      sync.Mutex
	tenants map[string]*Tenant

	failList bool
	listErr  error
	// afterList 在候选查询返回后调用，用于在查询和置位之间改变状态
	afterList func()
}

func newFakeTenantRepo(tenants ...*Tenant) *fakeTenantRepo {
	m := make(map[string]*Tenant, len(tenants))
	for _, t := range tenants {
		cp := *t
		m[t.ID] = &cp
	}
	return &fakeTenantRepo{tenants: m}
}

func (r *fakeTenantRepo) get(id string) *Tenant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tenants[id]
}

func (r *fakeTenantRepo) GetTenant(_ context.Context, tenantID string) (*Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[tenantID]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTenantRepo) SaveTenant(_ context.Context, t *Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	// 整行写回不携带认领标志，和存储层的 Omit 行为一致
	if cur, ok := r.tenants[t.ID]; ok {
		cp.ReferralRewardClaimed = cur.ReferralRewardClaimed
	}
	r.tenants[t.ID] = &cp
	return nil
}

func (r *fakeTenantRepo) sorted(match func(*Tenant) bool) []*Tenant {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Tenant
	for _, t := range r.tenants {
		if match(t) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func warningFlag(t *Tenant, stage WarningStage) bool {
	switch stage {
	case Warning48h:
		return t.Warning48hSent
	case Warning24h:
		return t.Warning24hSent
	default:
		return t.Warning72hSent
	}
}

// isWarningCandidate 预警候选条件: 标志未置位、状态匹配档位、到期日在窗口内
func isWarningCandidate(t *Tenant, stage WarningStage, from, to time.Time) bool {
	if t.NextBillingDate == nil || warningFlag(t, stage) {
		return false
	}
	if stage == Warning72h {
		if t.Status != StatusActive && t.Status != StatusPaymentWarning {
			return false
		}
	} else if t.Status != StatusPaymentWarning {
		return false
	}
	d := *t.NextBillingDate
	return !d.Before(from) && !d.After(to)
}

func (r *fakeTenantRepo) ListWarningCandidates(_ context.Context, stage WarningStage, from, to time.Time) ([]*Tenant, error) {
	if r.failList {
		return nil, r.listErr
	}
	out := r.sorted(func(t *Tenant) bool {
		return isWarningCandidate(t, stage, from, to)
	})
	if r.afterList != nil {
		r.afterList()
	}
	return out, nil
}

func (r *fakeTenantRepo) MarkWarningSent(_ context.Context, tenantID string, stage WarningStage, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[tenantID]
	if !ok {
		return false, nil
	}
	// 守卫重查完整的候选条件，和存储层的条件更新一致
	from := at.Add(stage.Offset() - constants.WarningWindow)
	to := at.Add(stage.Offset() + constants.WarningWindow)
	if !isWarningCandidate(t, stage, from, to) {
		return false, nil
	}
	switch stage {
	case Warning48h:
		t.Warning48hSent = true
		t.Warning48hSentAt = &at
	case Warning24h:
		t.Warning24hSent = true
		t.Warning24hSentAt = &at
	default:
		t.Warning72hSent = true
		t.Warning72hSentAt = &at
	}
	t.Status = StatusPaymentWarning
	t.UpdatedAt = at
	return true, nil
}

func (r *fakeTenantRepo) ListSuspensionCandidates(_ context.Context, now time.Time) ([]*Tenant, error) {
	if r.failList {
		return nil, r.listErr
	}
	return r.sorted(func(t *Tenant) bool {
		if t.NextBillingDate == nil {
			return false
		}
		if t.Status != StatusActive && t.Status != StatusPaymentWarning {
			return false
		}
		return !t.NextBillingDate.After(now)
	}), nil
}

func (r *fakeTenantRepo) MarkSuspended(_ context.Context, tenantID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[tenantID]
	if !ok {
		return false, nil
	}
	if t.Status != StatusActive && t.Status != StatusPaymentWarning {
		return false, nil
	}
	t.Status = StatusSuspended
	t.UpdatedAt = at
	return true, nil
}

func (r *fakeTenantRepo) ListEndedTrials(_ context.Context, now time.Time) ([]*Tenant, error) {
	if r.failList {
		return nil, r.listErr
	}
	return r.sorted(func(t *Tenant) bool {
		return t.Status == StatusTrial && t.TrialEndsAt != nil && !t.TrialEndsAt.After(now)
	}), nil
}

func (r *fakeTenantRepo) EndTrial(_ context.Context, tenantID string, dueAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[tenantID]
	if !ok || t.Status != StatusTrial {
		return false, nil
	}
	t.Status = StatusPaymentWarning
	due := dueAt
	t.NextBillingDate = &due
	t.UpdatedAt = dueAt
	return true, nil
}

func (r *fakeTenantRepo) ClaimReferralReward(_ context.Context, tenantID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[tenantID]
	if !ok || t.ReferralRewardClaimed {
		return false, nil
	}
	t.ReferralRewardClaimed = true
	return true, nil
}

// fakeHistoryRepo 内存状态历史仓库
type fakeHistoryRepo struct {
	mu      sync.Mutex
	entries []*StatusHistoryEntry
}

func (r *fakeHistoryRepo) AppendStatusHistory(_ context.Context, entry *StatusHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *fakeHistoryRepo) ListStatusHistory(_ context.Context, tenantID string, page, pageSize int) ([]*StatusHistoryEntry, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*StatusHistoryEntry
	for _, e := range r.entries {
		if e.TenantID == tenantID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (r *fakeHistoryRepo) forTenant(tenantID string) []*StatusHistoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*StatusHistoryEntry
	for _, e := range r.entries {
		if e.TenantID == tenantID {
			out = append(out, e)
		}
	}
	return out
}

// sentNotification 记录一次通知调用
type sentNotification struct {
	RecipientID string
	Title       string
	Body        string
	Severity    Severity
}

// fakeNotifier 内存通知客户端，可按收件人注入失败
type fakeNotifier struct {
	mu      sync.Mutex
	sent    []sentNotification
	failFor map[string]error
}

func (n *fakeNotifier) Send(_ context.Context, recipientID, title, body string, severity Severity) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err, ok := n.failFor[recipientID]; ok {
		return err
	}
	n.sent = append(n.sent, sentNotification{recipientID, title, body, severity})
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// fakeCreditRepo 内存推荐积分仓库
type fakeCreditRepo struct {
	mu      sync.Mutex
	credits []*ReferralCredit
}

func (r *fakeCreditRepo) CountAvailableCredits(_ context.Context, ownerTenantID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, c := range r.credits {
		if c.OwnerTenantID == ownerTenantID && c.Status == CreditAvailable {
			count++
		}
	}
	return count, nil
}

func (r *fakeCreditRepo) CreateCredit(_ context.Context, credit *ReferralCredit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *credit
	r.credits = append(r.credits, &cp)
	return nil
}

func (r *fakeCreditRepo) ExpireDueCredits(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, c := range r.credits {
		if c.Status == CreditAvailable && !c.ExpiresAt.After(now) {
			c.Status = CreditExpired
			count++
		}
	}
	return count, nil
}

func (r *fakeCreditRepo) available(ownerTenantID string) []*ReferralCredit {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*ReferralCredit
	for _, c := range r.credits {
		if c.OwnerTenantID == ownerTenantID && c.Status == CreditAvailable {
			out = append(out, c)
		}
	}
	return out
}

// fakeTx 直通事务管理器，记录事务次数
type fakeTx struct {
	mu    sync.Mutex
	calls int
}

func (tx *fakeTx) Exec(ctx context.Context, fn func(ctx context.Context) error) error {
	tx.mu.Lock()
	tx.calls++
	tx.mu.Unlock()
	return fn(ctx)
}
