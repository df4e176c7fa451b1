package main

import (
    "context"
    "fmt"
    "math"
    "math/rand"
    "os"
    "sort"
    "strconv"
    "sync"
    "sync/atomic"
    "time"

    "github.com/google/uuid"

    "github.com/d60-Lab/invitebatch/config"
    "github.com/d60-Lab/invitebatch/internal/model"
    "github.com/d60-Lab/invitebatch/internal/repository"
    "github.com/d60-Lab/invitebatch/internal/service"
    "github.com/d60-Lab/invitebatch/pkg/database"
)

func must[T any](v T, err error) T { if err != nil { panic(err) }; return v }

func envInt(key string, def int) int {
    if s := os.Getenv(key); s != "" {
        if n, err := strconv.Atoi(s); err == nil && n > 0 { return n }
    }
    return def
}

func main() {
    cfg := must(config.Load())
    db := must(database.InitDB(cfg))
    if err := database.AutoMigrate(db); err != nil { panic(err) }

    BATCHES := envInt("BATCHES", 20)
    SIZE := envInt("SIZE", 200)
    CONC := envInt("CONC", cfg.Invite.Concurrency)
    SEND_MS := envInt("SEND_MS", 20)
    FAIL_PCT := envInt("FAIL_PCT", 5)
    if SIZE > cfg.Invite.MaxBatchSize { SIZE = cfg.Invite.MaxBatchSize }

    ctx := context.Background()
    batches := repository.NewBatchRepository(db)
    invites := repository.NewInviteRepository(db)
    roles := repository.NewRoleRepository(db)

    // 模拟邮件服务：固定延迟 + 随机失败
    var sends, inFlight, maxInFlight atomic.Int64
    notifier := service.NotifierFunc(func(ctx context.Context, recipient string, msg service.Message) error {
        cur := inFlight.Add(1)
        defer inFlight.Add(-1)
        for { prev := maxInFlight.Load(); if cur <= prev || maxInFlight.CompareAndSwap(prev, cur) { break } }
        sends.Add(1)
        time.Sleep(time.Duration(SEND_MS) * time.Millisecond)
        if rand.Intn(100) < FAIL_PCT { return fmt.Errorf("simulated bounce") }
        return nil
    })

    hub := service.NewProgressHub(cfg.Invite.SubscriberBuffer)
    dispatcher := service.NewBoundedDispatcher(notifier, batches, hub, service.DispatchOptions{
        Concurrency: CONC, Retries: cfg.Invite.Retries, Backoff: time.Millisecond,
    })
    persister := service.NewBatchPersister(db, batches, invites, roles)
    svc := service.NewInviteBatchService(persister, dispatcher, batches, hub, nil, service.BatchLimits{
        MaxBatchSize: cfg.Invite.MaxBatchSize, DefaultExpiresInDays: cfg.Invite.DefaultExpiresInDays,
    })

    orgID := uuid.New().String()
    role := &model.OrgRole{OrgID: orgID, Name: "Class teacher", BaseRole: model.RoleTeacher}
    if err := roles.Create(ctx, role); err != nil { panic(err) }

    submitRecs := make([]time.Duration, 0, BATCHES)
    doneRecs := make([]time.Duration, 0, BATCHES)
    var mu sync.Mutex
    var wg sync.WaitGroup
    var sent, failed, skipped int64

    t0 := time.Now()
    for b := 0; b < BATCHES; b++ {
        items := make([]service.InviteRequest, SIZE)
        for i := range items {
            id := uuid.New().String()
            items[i] = service.InviteRequest{Email: id[:12] + "@bench.example.com", Role: "student"}
            // 每 10 条混入一条角色ID与一条重复
            if i%10 == 1 { items[i] = service.InviteRequest{Email: id[:12] + "@bench.example.com", RoleID: role.ID} }
            if i%10 == 2 { items[i] = items[i-2] }
        }

        st := time.Now()
        res, err := svc.Submit(ctx, orgID, items, service.SubmitOptions{SendEmail: true})
        if err != nil { panic(err) }
        submitDur := time.Since(st)
        sub, snap, err := svc.Subscribe(ctx, orgID, res.BatchID)
        if err != nil { panic(err) }

        wg.Add(1)
        go func(sub *service.Subscriber, snap *model.InviteBatch, start time.Time) {
            defer wg.Done()
            defer svc.Unsubscribe(sub)
            ev := service.TerminalEvent(snap)
            if !snap.Status.IsTerminal() {
                // 订阅前可能已经结束；等不到终止事件时以存储为准
                timeout := time.NewTimer(5 * time.Minute)
                defer timeout.Stop()
                wait: for {
                    select {
                    case f, ok := <-sub.Frames():
                        if !ok || f.Event != service.EventProgress { break wait }
                    case <-timeout.C:
                        break wait
                    }
                }
                b := must(batches.Get(ctx, sub.BatchID()))
                ev = service.TerminalEvent(b)
            }
            mu.Lock()
            submitRecs = append(submitRecs, submitDur)
            doneRecs = append(doneRecs, time.Since(start))
            sent += int64(ev.Sent); failed += int64(ev.Failed); skipped += int64(ev.Skipped)
            mu.Unlock()
        }(sub, snap, st)
    }
    wg.Wait()
    total := time.Since(t0)

    pct := func(vs []time.Duration, p float64) time.Duration {
        if len(vs) == 0 { return 0 }
        xs := append([]time.Duration(nil), vs...)
        sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
        k := int(math.Ceil(p*float64(len(xs)))) - 1
        if k < 0 { k = 0 }
        if k >= len(xs) { k = len(xs)-1 }
        return xs[k]
    }

    fmt.Printf("BATCHES=%d, SIZE=%d, CONC=%d, SEND_MS=%d, FAIL_PCT=%d, RETRIES=%d\n",
        BATCHES, SIZE, CONC, SEND_MS, FAIL_PCT, cfg.Invite.Retries)
    fmt.Printf("Submit latency p50: %v, p95: %v, p99: %v\n", pct(submitRecs, 0.50), pct(submitRecs, 0.95), pct(submitRecs, 0.99))
    fmt.Printf("Batch completion p50: %v, p95: %v, p99: %v, wall: %v\n", pct(doneRecs, 0.50), pct(doneRecs, 0.95), pct(doneRecs, 0.99), total)
    fmt.Printf("Outcome sent=%d failed=%d skipped=%d attempts=%d maxInFlight=%d\n",
        sent, failed, skipped, sends.Load(), maxInFlight.Load())
}
