package checkout

import (
	"context"
	"time"
)

// ポーリングが読む注文ステータス。
type OrderStatus struct {
	IsPaid            bool
	PaymentStatus     string
	FulfillmentStatus string
}

// ステータス読み取りの約束。実装はHTTPクライアントでもリポジトリ直でもよい。
type OrderStatusReader interface {
	ReadStatus(ctx context.Context, orderID string) (OrderStatus, error)
}

type PollResult int

const (
	PollStillProcessing PollResult = iota
	PollConfirmed
)

func (r PollResult) String() string {
	if r == PollConfirmed {
		return "confirmed"
	}
	return "still_processing"
}

// ゲートウェイへリダイレクトした後の照合ループ。
// 一定間隔で読むだけで、注文作成やURL再生成は絶対にしない。
type Poller struct {
	reader      OrderStatusReader
	interval    time.Duration
	maxAttempts int
}

func NewPoller(reader OrderStatusReader, interval time.Duration, maxAttempts int) *Poller {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 20
	}
	return &Poller{reader: reader, interval: interval, maxAttempts: maxAttempts}
}

// Poll は終端（支払い確定/失敗）か試行上限で止まる。
// 上限到達は「まだ処理中」をそのまま返し、無限には待たない。
// ctxキャンセル（画面遷移など）で副作用なしに抜ける。
func (p *Poller) Poll(ctx context.Context, orderID string) (PollResult, error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		//失敗したIPNは状態を変えないので、サーバ側で見えるのは
		//「支払い済み」か「まだ」だけ。失敗の終端はここには来ない。
		st, err := p.reader.ReadStatus(ctx, orderID)
		if err == nil && st.IsPaid {
			return PollConfirmed, nil
		}
		//一時的な読み取り失敗は次の周回で拾う

		select {
		case <-ctx.Done():
			return PollStillProcessing, ctx.Err()
		case <-ticker.C:
		}
	}

	return PollStillProcessing, nil
}
