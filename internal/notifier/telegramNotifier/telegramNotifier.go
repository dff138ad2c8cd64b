package telegramNotifier

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KotFed0t/index_rebalancer/config"
	"github.com/KotFed0t/index_rebalancer/internal/model"
	"github.com/KotFed0t/index_rebalancer/utils"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v4"
)

// Sender is the subset of *tele.Bot used for notifications.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

type TelegramNotifier struct {
	bot  Sender
	chat tele.ChatID
}

func New(cfg *config.Config) *TelegramNotifier {
	settings := tele.Settings{
		Token:   cfg.Telegram.Token,
		Offline: true,
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		slog.Error("error while tele.NewBot", slog.String("err", err.Error()))
		panic(err)
	}

	return NewWithSender(b, cfg.Telegram.ChatID)
}

func NewWithSender(bot Sender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chat: tele.ChatID(chatID)}
}

func (n *TelegramNotifier) Notify(ctx context.Context, report model.RebalanceReport, files []model.ReportFile) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TelegramNotifier.Notify"

	slog.Debug("Notify start", slog.String("rqID", rqID), slog.String("op", op))

	if _, err := n.bot.Send(n.chat, Summary(report)); err != nil {
		slog.Error("failed sending summary", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	for _, file := range files {
		doc := &tele.Document{
			File:     tele.FromReader(bytes.NewReader(file.Content)),
			FileName: file.Name,
		}
		if _, err := n.bot.Send(n.chat, doc); err != nil {
			slog.Error("failed sending document", slog.String("rqID", rqID), slog.String("op", op), slog.String("file", file.Name), slog.String("err", err.Error()))
			return err
		}
	}

	slog.Debug("Notify completed", slog.String("rqID", rqID), slog.String("op", op))

	return nil
}

// Summary renders a short plain text digest of a rebalance.
func Summary(report model.RebalanceReport) string {
	counts := make(map[model.Status]int, 4)
	for _, rec := range report.Reconciliation {
		counts[rec.Status]++
	}

	soldValue := decimal.Zero
	for _, stock := range report.Sold {
		soldValue = soldValue.Add(stock.TotalValue)
	}

	boughtValue := decimal.Zero
	for _, stock := range report.Bought {
		boughtValue = boughtValue.Add(stock.NumShares.Mul(stock.Price))
	}

	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("Index rebalance %s -> %s\n", report.FirstDate, report.SecondDate))
	sb.WriteString(fmt.Sprintf("capital: %s, cutoff: %s\n", report.Capital.StringFixed(2), report.Cutoff.String()))
	sb.WriteString(fmt.Sprintf("constituents: %d -> %d\n", len(report.InitialPortfolio), len(report.NewPortfolio)))
	sb.WriteString(fmt.Sprintf("keep: %d, sell: %d, buy: %d\n", counts[model.StatusKeep], counts[model.StatusSell], counts[model.StatusBuy]))
	sb.WriteString(fmt.Sprintf("sold value: %s\n", soldValue.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("bought value: %s", boughtValue.StringFixed(2)))

	return sb.String()
}
