// Package control 把外部控制指令 (WebSocket / Redis) 轉為 Simulation 的呼叫。
package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JoeShih716/virtual-audience/internal/core/domain"
	"github.com/JoeShih716/virtual-audience/internal/raid"
	"github.com/JoeShih716/virtual-audience/internal/simulation"
)

// ErrUnknownAction 不支援的指令
var ErrUnknownAction = errors.New("unknown action")

// Handler 指令處理器
type Handler struct {
	sim    *simulation.Simulation
	logger *slog.Logger
}

// NewHandler 建立指令處理器
func NewHandler(sim *simulation.Simulation, logger *slog.Logger) *Handler {
	return &Handler{sim: sim, logger: logger.With("component", "control")}
}

// Handle 解析並執行一則指令，永遠回傳可送回給呼叫端的回應
//
// 參數:
//
//	msg: []byte - JSON 指令封包
//
// 回傳值:
//
//	Response: 執行結果或錯誤
func (h *Handler) Handle(msg []byte) Response {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		h.logger.Warn("Invalid JSON envelope", "error", err)
		return Response{Action: "unknown", Error: "invalid JSON format"}
	}

	data, err := h.dispatch(env)
	if err != nil {
		resp := Response{Action: env.Action, Error: err.Error()}
		var reject *domain.RejectError
		if errors.As(err, &reject) {
			resp.Reason = reject.Reason.Error()
			h.logger.Debug("Command rejected", "action", env.Action, "error", err)
		} else {
			h.logger.Warn("Command failed", "action", env.Action, "error", err)
		}
		return resp
	}
	return Response{Action: env.Action, Data: data}
}

func (h *Handler) dispatch(env Envelope) (any, error) {
	switch env.Action {
	case ActionPostMessage:
		var req postMessageReq
		if err := decode(env.Payload, &req); err != nil {
			return nil, err
		}
		return h.sim.PostMessage(domain.ChatMessage{Username: req.Username, Text: req.Text}), nil

	case ActionRemoveMessage:
		var req idReq
		if err := decode(env.Payload, &req); err != nil {
			return nil, err
		}
		if !h.sim.RemoveMessage(req.ID) {
			return nil, domain.Reject(domain.ErrMessageNotFound, "message %s", req.ID)
		}
		return req, nil

	case ActionCreatePoll:
		var req createPollReq
		if err := decode(env.Payload, &req); err != nil {
			return nil, err
		}
		return h.sim.CreatePoll(req.Question, req.Options, seconds(req.DurationSec))

	case ActionEndPoll:
		var req idReq
		if err := decode(env.Payload, &req); err != nil {
			return nil, err
		}
		return h.sim.EndPoll(req.ID)

	case ActionRedeem:
		var req redeemReq
		if err := decode(env.Payload, &req); err != nil {
			return nil, err
		}
		id, err := h.userID(req.Username)
		if err != nil {
			return nil, err
		}
		return h.sim.Redeem(id, req.RedemptionID)

	case ActionCheer:
		var req cheerReq
		if err := decode(env.Payload, &req); err != nil {
			return nil, err
		}
		id, err := h.userID(req.Username)
		if err != nil {
			return nil, err
		}
		return h.sim.Cheer(id, req.Amount, req.Message)

	case ActionGiftBits:
		var req giftBitsReq
		if err := decode(env.Payload, &req); err != nil {
			return nil, err
		}
		from, to, err := h.pair(req.From, req.To)
		if err != nil {
			return nil, err
		}
		return h.sim.GiftBits(from, to, req.Amount)

	case ActionSubscribe:
		var req subscribeReq
		if err := decode(env.Payload, &req); err != nil {
			return nil, err
		}
		id, err := h.userID(req.Username)
		if err != nil {
			return nil, err
		}
		return h.sim.Subscribe(id, domain.SubTier(req.Tier), req.Message)

	case ActionGiftSub:
		var req giftSubReq
		if err := decode(env.Payload, &req); err != nil {
			return nil, err
		}
		from, to, err := h.pair(req.From, req.To)
		if err != nil {
			return nil, err
		}
		return h.sim.GiftSubscription(from, to, domain.SubTier(req.Tier))

	case ActionCommunityGift:
		var req giftSubReq
		if err := decode(env.Payload, &req); err != nil {
			return nil, err
		}
		from, err := h.userID(req.From)
		if err != nil {
			return nil, err
		}
		return h.sim.CommunityGift(from, req.Count, domain.SubTier(req.Tier))

	case ActionStartRaid:
		var req raidReq
		if err := decode(env.Payload, &req); err != nil {
			return nil, err
		}
		err := h.sim.StartRaid(raid.Request{
			RaiderCount:    req.RaiderCount,
			RaiderUsername: req.RaiderUsername,
			Intensity:      req.Intensity,
			Duration:       seconds(req.DurationSec),
		})
		if err != nil {
			return nil, err
		}
		return h.sim.Raid().Status(), nil

	case ActionStopRaid:
		if err := h.sim.StopRaid(); err != nil {
			return nil, err
		}
		return h.sim.Raid().Status(), nil

	case ActionSurge:
		var req surgeReq
		if err := decode(env.Payload, &req); err != nil {
			return nil, err
		}
		if req.Count <= 0 {
			return nil, domain.Reject(domain.ErrInvalidAmount, "surge count %d", req.Count)
		}
		return map[string]int{"scheduled": h.sim.TriggerSurge(req.Count)}, nil

	case ActionTimeout, ActionBan:
		var req moderationReq
		if err := decode(env.Payload, &req); err != nil {
			return nil, err
		}
		id, err := h.userID(req.Username)
		if err != nil {
			return nil, err
		}
		if env.Action == ActionBan {
			err = h.sim.Ban(id, req.By, req.Reason)
		} else {
			err = h.sim.Timeout(id, req.By, seconds(req.DurationSec), req.Reason)
		}
		if err != nil {
			return nil, err
		}
		return h.sim.Pool().Get(id), nil

	case ActionSnapshot:
		return h.sim.Snapshot(), nil

	case ActionCatalog:
		type item struct {
			ID       string        `json:"id"`
			Name     string        `json:"name"`
			Cost     int64         `json:"cost"`
			Cooldown time.Duration `json:"cooldown"`
			Waiting  time.Duration `json:"waiting"`
		}
		defs := h.sim.Points().Catalog()
		out := make([]item, 0, len(defs))
		for _, d := range defs {
			out = append(out, item{ID: d.ID, Name: d.Name, Cost: d.Cost, Cooldown: d.Cooldown, Waiting: h.sim.Points().CooldownRemaining(d.ID)})
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Action)
}

func (h *Handler) userID(username string) (string, error) {
	u := h.sim.Pool().GetByUsername(username)
	if u == nil {
		return "", domain.Reject(domain.ErrUserNotFound, "username %q", username)
	}
	return u.ID, nil
}

func (h *Handler) pair(from, to string) (string, string, error) {
	fromID, err := h.userID(from)
	if err != nil {
		return "", "", err
	}
	toID, err := h.userID(to)
	if err != nil {
		return "", "", err
	}
	return fromID, toID, nil
}

func decode(payload json.RawMessage, dest any) error {
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
