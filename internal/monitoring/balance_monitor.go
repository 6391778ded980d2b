package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"text/template"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gagliardetto/solana-go"

	"github.com/kora-labs/relayer/internal/httputil"
	"github.com/kora-labs/relayer/internal/logger"
	"github.com/kora-labs/relayer/internal/relayconfig"
)

// BalanceSource is satisfied by any signer pool entry able to report its
// public key and its current fee-payer balance. The signer pool's
// backends (Memory/Turnkey/Privy/Vault) all implement this.
type BalanceSource interface {
	PublicKey() solana.PublicKey
	LamportBalance(ctx context.Context) (uint64, error)
}

// BalanceMonitor periodically checks fee-payer wallet balances and sends alerts when balances are low.
type BalanceMonitor struct {
	cfg        relayconfig.MonitoringConfig
	signers    []BalanceSource
	httpClient *http.Client

	mu          sync.Mutex
	alertedKeys map[string]time.Time // wallet -> last alert time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// BalanceAlert contains information about a wallet with low balance.
type BalanceAlert struct {
	Wallet    string    `json:"wallet"`
	Balance   float64   `json:"balance"`
	Threshold float64   `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBalanceMonitor creates a new balance monitor for the configured signer pool entries.
func NewBalanceMonitor(cfg relayconfig.MonitoringConfig, signers []BalanceSource) *BalanceMonitor {
	return &BalanceMonitor{
		cfg:         cfg,
		signers:     signers,
		httpClient:  httputil.NewClient(cfg.Timeout.Duration),
		alertedKeys: make(map[string]time.Time),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the balance monitoring loop.
func (m *BalanceMonitor) Start(ctx context.Context) {
	if m.cfg.LowBalanceAlertURL == "" {
		log.Info().Msg("balance_monitor.disabled_no_url")
		return
	}
	if len(m.signers) == 0 {
		log.Info().Msg("balance_monitor.no_wallets")
		return
	}

	log.Info().
		Int("wallet_count", len(m.signers)).
		Dur("check_interval", m.cfg.BalancePollInterval.Duration).
		Uint64("threshold_lamports", m.cfg.LowBalanceThresholdLamports).
		Msg("balance_monitor.started")

	m.wg.Add(1)
	go m.monitorLoop(ctx)
}

// Stop gracefully stops the balance monitoring loop.
func (m *BalanceMonitor) Stop() {
	close(m.stopCh)
	m.wg.Wait()
	log.Info().Msg("balance_monitor.stopped")
}

func (m *BalanceMonitor) monitorLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.BalancePollInterval.Duration)
	defer ticker.Stop()

	m.checkBalances(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.checkBalances(ctx)
		}
	}
}

func (m *BalanceMonitor) checkBalances(ctx context.Context) {
	for _, signer := range m.signers {
		wallet := signer.PublicKey()
		balance, err := signer.LamportBalance(ctx)
		if err != nil {
			log.Error().
				Err(err).
				Str("wallet", logger.TruncateAddress(wallet.String())).
				Msg("balance_monitor.fetch_error")
			continue
		}

		log.Debug().
			Str("wallet", logger.TruncateAddress(wallet.String())).
			Uint64("balance_lamports", balance).
			Msg("balance_monitor.balance_checked")

		if balance < m.cfg.LowBalanceThresholdLamports {
			if m.shouldAlert(wallet.String()) {
				m.sendAlert(ctx, wallet.String(), balance)
			}
		} else {
			m.clearAlert(wallet.String())
		}
	}
}

// shouldAlert returns true if we should send an alert for this wallet.
// We only alert once per 24 hours to avoid spam.
func (m *BalanceMonitor) shouldAlert(wallet string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	lastAlert, exists := m.alertedKeys[wallet]
	if !exists {
		return true
	}
	return time.Since(lastAlert) > 24*time.Hour
}

func (m *BalanceMonitor) clearAlert(wallet string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.alertedKeys, wallet)
}

func (m *BalanceMonitor) sendAlert(ctx context.Context, wallet string, balanceLamports uint64) {
	balanceSOL := float64(balanceLamports) / 1e9
	thresholdSOL := float64(m.cfg.LowBalanceThresholdLamports) / 1e9

	alert := BalanceAlert{
		Wallet:    wallet,
		Balance:   balanceSOL,
		Threshold: thresholdSOL,
		Timestamp: time.Now(),
	}

	var body []byte
	var err error

	if m.cfg.BodyTemplate != "" {
		body, err = m.renderTemplate(alert)
		if err != nil {
			log.Error().Err(err).Str("wallet", logger.TruncateAddress(wallet)).Msg("balance_monitor.template_error")
			return
		}
	} else {
		body, err = json.Marshal(map[string]any{
			"content": fmt.Sprintf(
				"Low balance alert\n\nWallet: %s\nBalance: %.6f SOL\nThreshold: %.6f SOL\n\n"+
					"Add more SOL to continue processing gasless transactions.",
				wallet, balanceSOL, thresholdSOL,
			),
		})
		if err != nil {
			log.Error().Err(err).Str("wallet", logger.TruncateAddress(wallet)).Msg("balance_monitor.marshal_error")
			return
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.LowBalanceAlertURL, bytes.NewReader(body))
	if err != nil {
		log.Error().Err(err).Str("wallet", logger.TruncateAddress(wallet)).Msg("balance_monitor.request_error")
		return
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range m.cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("wallet", logger.TruncateAddress(wallet)).Msg("balance_monitor.send_error")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		log.Info().
			Str("wallet", logger.TruncateAddress(wallet)).
			Float64("balance_sol", balanceSOL).
			Int("status_code", resp.StatusCode).
			Msg("balance_monitor.alert_sent")
		m.mu.Lock()
		m.alertedKeys[wallet] = time.Now()
		m.mu.Unlock()
	} else {
		log.Warn().
			Str("wallet", logger.TruncateAddress(wallet)).
			Int("status_code", resp.StatusCode).
			Msg("balance_monitor.alert_failed")
	}
}

func (m *BalanceMonitor) renderTemplate(alert BalanceAlert) ([]byte, error) {
	tmpl, err := template.New("alert").Parse(m.cfg.BodyTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, alert); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}
	return buf.Bytes(), nil
}
