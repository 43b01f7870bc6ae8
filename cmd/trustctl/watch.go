package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/encoding/fixedn"
	"github.com/nspcc-dev/neo-go/pkg/neorpc"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/trust-registry/rpc/trust"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	trustVotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trust_votes_total",
		Help: "Total votes submitted by value.",
	}, []string{"trusted"})

	trustPinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trust_pins_total",
		Help: "Total authority overrides by value.",
	}, []string{"trusted"})

	trustAuthoritiesAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trust_authorities_added_total",
		Help: "Total accounts added to the authority set.",
	})

	trustDepositAmount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trust_deposit_amount_gas",
		Help: "Current vote deposit in GAS.",
	})

	trustNotificationErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trust_notification_errors_total",
		Help: "Total contract notifications failed to be decoded.",
	})
)

func init() {
	watchCmd.Flags().String(cfgMetricsAddr, "", "address to serve Prometheus metrics on, disabled if empty")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Log Trust Registry notifications and export them as metrics",
	Long: `Watch subscribes to Trust Registry notifications over WebSocket and logs
them until interrupted. With --metrics_addr counters are exposed for
Prometheus at /metrics.

RPC endpoint must be a WebSocket one, e.g. ws://localhost:30333/ws.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_ = viper.BindPFlag(cfgMetricsAddr, cmd.Flags().Lookup(cfgMetricsAddr))

		ctx := cmd.Context()

		b, err := newRemoteBlockchain(ctx)
		if err != nil {
			return err
		}
		defer b.close()

		deposit, err := b.reader.DepositAmount()
		if err != nil {
			return fmt.Errorf("get deposit amount: %w", err)
		}
		setDepositGauge(deposit.Int64())

		if addr := viper.GetString(cfgMetricsAddr); addr != "" {
			srv := &http.Server{
				Addr:              addr,
				Handler:           promhttp.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			go func() {
				logger.Info("serving metrics", zap.String("address", addr))
				err := srv.ListenAndServe()
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("metrics server failed", zap.Error(err))
				}
			}()

			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		ws, err := rpcclient.NewWS(ctx, viper.GetString(cfgRPC), rpcclient.WSOptions{
			Options: rpcclient.Options{
				DialTimeout:    rpcTimeout,
				RequestTimeout: rpcTimeout,
			},
		})
		if err != nil {
			return fmt.Errorf("WebSocket client dial: %w", err)
		}
		defer ws.Close()

		err = ws.Init()
		if err != nil {
			return fmt.Errorf("WebSocket client init: %w", err)
		}

		ch := make(chan *state.ContainedNotificationEvent)

		contract := b.contract
		_, err = ws.ReceiveExecutionNotifications(&neorpc.NotificationFilter{Contract: &contract}, ch)
		if err != nil {
			return fmt.Errorf("subscribe to notifications: %w", err)
		}

		logger.Info("watching Trust Registry notifications...", zap.Stringer("address", contract))

		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-ch:
				if !ok {
					return errors.New("notification channel closed, connection lost")
				}

				err = handleNotification(ev)
				if err != nil {
					trustNotificationErrorsTotal.Inc()
					logger.Warn("invalid notification", zap.String("name", ev.Name),
						zap.Stringer("tx", ev.Container), zap.Error(err))
				}
			}
		}
	},
}

func handleNotification(ev *state.ContainedNotificationEvent) error {
	l := logger.With(zap.Stringer("tx", ev.Container))

	switch ev.Name {
	case "VerificationSubmitted":
		var e trust.VerificationSubmittedEvent
		if err := e.FromStackItem(ev.Item); err != nil {
			return err
		}

		trustVotesTotal.WithLabelValues(strconv.FormatBool(e.Trusted)).Inc()
		l.Info("vote submitted", zap.String("entry", e.EntryID),
			zap.String("voter", address.Uint160ToString(e.Voter)), zap.Bool("trusted", e.Trusted))
	case "VerificationPinned":
		var e trust.VerificationPinnedEvent
		if err := e.FromStackItem(ev.Item); err != nil {
			return err
		}

		trustPinsTotal.WithLabelValues(strconv.FormatBool(e.Trusted)).Inc()
		l.Info("score pinned", zap.String("entry", e.EntryID),
			zap.String("authority", address.Uint160ToString(e.Authority)), zap.Bool("trusted", e.Trusted))
	case "AuthorityAdded":
		var e trust.AuthorityAddedEvent
		if err := e.FromStackItem(ev.Item); err != nil {
			return err
		}

		trustAuthoritiesAddedTotal.Inc()
		l.Info("authority added", zap.String("account", address.Uint160ToString(e.Account)))
	case "DepositChanged":
		var e trust.DepositChangedEvent
		if err := e.FromStackItem(ev.Item); err != nil {
			return err
		}

		setDepositGauge(e.Amount.Int64())
		l.Info("deposit changed", zap.String("amount", fixedn.ToString(e.Amount, 8)))
	default:
		l.Debug("skip unknown notification", zap.String("name", ev.Name))
	}

	return nil
}

func setDepositGauge(amount int64) {
	trustDepositAmount.Set(float64(amount) / 1e8)
}
