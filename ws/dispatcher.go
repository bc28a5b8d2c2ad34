package ws

import (
	"context"
	"encoding/json"
	"errors"

	"hrportal_backend/internal/auth"
	"hrportal_backend/internal/logger"
	"hrportal_backend/internal/metrics"
	"hrportal_backend/internal/services"
	"hrportal_backend/internal/services/dto"
	"hrportal_backend/pkg/apperrors"
	"hrportal_backend/pkg/realtime"
)

// Dispatcher разбирает входящие события соединения
type Dispatcher struct {
	manager *WebSocketManager
	tickets services.TicketService
}

func NewDispatcher(manager *WebSocketManager, tickets services.TicketService) *Dispatcher {
	return &Dispatcher{manager: manager, tickets: tickets}
}

// ackedError - клиент уже получил ответ с ошибкой, событие error не нужно
type ackedError struct{ error }

func (d *Dispatcher) Dispatch(ctx context.Context, c *Client, env realtime.Envelope) {
	var err error
	label := env.Event

	switch env.Event {
	case realtime.EventUserRegister:
		err = d.register(c, env.Data)
	case realtime.EventTicketJoin:
		err = d.join(ctx, c, env.Data)
	case realtime.EventTicketLeave:
		err = d.leave(c, env.Data)
	case realtime.EventMessageSend:
		err = d.sendMessage(ctx, c, env.Data)
	case realtime.EventTypingStart:
		err = d.typing(c, env.Data, realtime.EventTypingUserStarted)
	case realtime.EventTypingStop:
		err = d.typing(c, env.Data, realtime.EventTypingUserStopped)
	case realtime.EventTicketUpdateStatus:
		err = d.updateStatus(ctx, c, env.Data)
	default:
		label = "unknown"
		err = apperrors.ErrInvalidOperation("realtime", "Unknown event: "+env.Event)
	}

	metrics.RecordWSEvent(label, err)
	logger.WSLog(env.Event, c.ID, c.authed.UserID, err)

	var acked ackedError
	if err != nil && !errors.As(err, &acked) {
		d.manager.SendTo(c.ID, realtime.EventError, realtime.ErrorPayload{Message: clientMessage(err)})
	}
}

func clientMessage(err error) string {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.Message
	}
	return "Internal server error"
}

func decode(event string, data json.RawMessage, into any) error {
	if len(data) == 0 {
		return apperrors.NewBadRequestError("Missing payload for " + event)
	}
	if err := json.Unmarshal(data, into); err != nil {
		return apperrors.NewBadRequestError("Invalid payload for " + event)
	}
	return nil
}

// registered - личность соединения после user:register
func (d *Dispatcher) registered(c *Client) (auth.Identity, error) {
	identity, ok := d.manager.IdentityOf(c.ID)
	if !ok {
		return auth.Identity{}, apperrors.ErrNotRegistered
	}
	return identity, nil
}

// ---------------- Handlers ----------------

// register: userId должен совпадать с токеном, роль всегда берется из токена
func (d *Dispatcher) register(c *Client, data json.RawMessage) error {
	var payload realtime.RegisterPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			return apperrors.NewBadRequestError("Invalid payload for " + realtime.EventUserRegister)
		}
	}

	if payload.UserID != "" && payload.UserID != c.authed.UserID {
		d.manager.SendTo(c.ID, realtime.EventUserRegistered, realtime.RegisteredPayload{
			Success: false,
			Message: apperrors.ErrIdentityMismatch.Message,
		})
		return ackedError{apperrors.ErrIdentityMismatch}
	}

	identity := c.authed
	if identity.Name == "" {
		identity.Name = payload.UserName
	}
	if err := d.manager.Identify(c.ID, identity); err != nil {
		return apperrors.InternalError(err)
	}

	d.manager.SendTo(c.ID, realtime.EventUserRegistered, realtime.RegisteredPayload{Success: true})
	return nil
}

func (d *Dispatcher) join(ctx context.Context, c *Client, data json.RawMessage) error {
	identity, err := d.registered(c)
	if err != nil {
		return err
	}
	var ref realtime.TicketRef
	if err := decode(realtime.EventTicketJoin, data, &ref); err != nil {
		return err
	}
	if ref.TicketID == "" {
		return apperrors.NewBadRequestError("ticketId is required")
	}

	if _, err := d.tickets.CanAccess(ctx, identity, ref.TicketID); err != nil {
		return err
	}
	if err := d.manager.Join(c.ID, ref.TicketID); err != nil {
		return apperrors.ErrNotRegistered
	}
	return nil
}

func (d *Dispatcher) leave(c *Client, data json.RawMessage) error {
	var ref realtime.TicketRef
	if err := decode(realtime.EventTicketLeave, data, &ref); err != nil {
		return err
	}
	d.manager.Leave(c.ID, ref.TicketID)
	return nil
}

// sendMessage: запись -> message:received в комнату -> message:sent отправителю -> автостатус
func (d *Dispatcher) sendMessage(ctx context.Context, c *Client, data json.RawMessage) error {
	identity, err := d.registered(c)
	if err != nil {
		return err
	}
	var req dto.SendMessageRequest
	if err := decode(realtime.EventMessageSend, data, &req); err != nil {
		return err
	}

	ctx = logger.WithTicketID(ctx, req.TicketID)
	outcome, err := d.tickets.SendMessage(ctx, identity, &req)
	if err != nil {
		return err
	}

	d.manager.SendTo(c.ID, realtime.EventMessageSent, realtime.MessageSentPayload{
		TicketID: outcome.Ticket.ID,
		Success:  true,
		Message:  outcome.Message,
	})

	d.tickets.AfterMessage(ctx, identity, outcome)
	return nil
}

// typing пересылается только участникам комнаты, без отправителя
func (d *Dispatcher) typing(c *Client, data json.RawMessage, relay string) error {
	identity, err := d.registered(c)
	if err != nil {
		return err
	}
	var ref realtime.TicketRef
	if err := decode(relay, data, &ref); err != nil {
		return err
	}
	if !d.manager.InRoom(c.ID, ref.TicketID) {
		return apperrors.ErrInvalidOperation("realtime", "Join the ticket before typing")
	}

	d.manager.EmitToRoomExcept(ref.TicketID, c.ID, relay, realtime.TypingPayload{
		UserID:   identity.UserID,
		UserName: identity.Name,
		TicketID: ref.TicketID,
	})
	return nil
}

func (d *Dispatcher) updateStatus(ctx context.Context, c *Client, data json.RawMessage) error {
	identity, err := d.registered(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketStatusRequest
	if err := decode(realtime.EventTicketUpdateStatus, data, &req); err != nil {
		return err
	}

	_, err = d.tickets.UpdateStatus(logger.WithTicketID(ctx, req.TicketID), identity, &req)
	return err
}
