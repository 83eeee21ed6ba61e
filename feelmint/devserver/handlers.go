package devserver

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/feelmint/feelmint-go/feelmint/api"
	"github.com/feelmint/feelmint-go/feelmint/pro"
)

type successEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type errorEnvelope struct {
	Status string       `json:"status"`
	Error  errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func sendSuccess(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusOK).JSON(successEnvelope{Status: "success", Data: data})
}

func sendError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorEnvelope{
		Status: "error",
		Error:  errorPayload{Code: code, Message: message},
	})
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	key := c.Params("key")
	if len(c.Body()) == 0 {
		return sendError(c, fiber.StatusBadRequest, "EMPTY_BODY", "no payload")
	}
	body := make([]byte, len(c.Body()))
	copy(body, c.Body())
	s.store.saveUpload(key, body)
	return c.SendStatus(fiber.StatusOK)
}

func (s *Server) handleFile(c *fiber.Ctx) error {
	data, ok := s.store.upload(c.Params("key"))
	if !ok {
		return sendError(c, fiber.StatusNotFound, "NOT_FOUND", "no such file")
	}
	return c.Send(data)
}

func (s *Server) handleDailyTasks(c *fiber.Ctx) error {
	return sendSuccess(c, s.store.dailyTasks())
}

func (s *Server) handleUploadTicket(c *fiber.Ctx) error {
	var req struct {
		TaskType string `json:"task_type"`
	}
	if err := c.BodyParser(&req); err != nil || req.TaskType == "" {
		return sendError(c, fiber.StatusBadRequest, "BAD_REQUEST", "task_type required")
	}
	return sendSuccess(c, s.store.uploadTicket(s.baseURL))
}

func (s *Server) handleSubmit(c *fiber.Ctx) error {
	var req api.SubmitTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return sendError(c, fiber.StatusBadRequest, "BAD_REQUEST", "malformed body")
	}
	req.TaskID = c.Params("id")

	err := s.store.registerSubmission(token(c), req.TaskID, req.FileURL, req.Answers)
	switch {
	case errors.Is(err, errUnknownTask):
		return sendError(c, fiber.StatusNotFound, "TASK_UNKNOWN", err.Error())
	case errors.Is(err, errTaskComplete):
		return sendError(c, fiber.StatusConflict, "TASK_COMPLETE", err.Error())
	case errors.Is(err, errBadAnswers):
		return sendError(c, fiber.StatusBadRequest, "ANSWERS_MISSING", err.Error())
	case err != nil:
		return err
	}
	return sendSuccess(c, nil)
}

func (s *Server) handleClaimable(c *fiber.Ctx) error {
	category := api.RewardCategory(c.Query("category"))
	amount := s.store.claimable(token(c), category)
	return sendSuccess(c, fiber.Map{"amount": amount})
}

func (s *Server) handleRecords(c *fiber.Ctx) error {
	category := api.RewardCategory(c.Query("category"))
	return sendSuccess(c, fiber.Map{"records": s.store.records(token(c), category)})
}

func (s *Server) handleVoucher(c *fiber.Ctx) error {
	var req struct {
		Category api.RewardCategory `json:"category"`
	}
	if err := c.BodyParser(&req); err != nil {
		return sendError(c, fiber.StatusBadRequest, "BAD_REQUEST", "malformed body")
	}
	voucher, err := s.store.issueVoucher(token(c), req.Category)
	if errors.Is(err, errNothingToClaim) {
		return sendError(c, fiber.StatusConflict, "NOTHING_TO_CLAIM", err.Error())
	}
	if err != nil {
		return err
	}
	return sendSuccess(c, voucher)
}

func (s *Server) handleClaimed(c *fiber.Ctx) error {
	var req struct {
		Nonce   uint64 `json:"nonce"`
		TxHash  string `json:"tx_hash"`
		ChainID uint64 `json:"chain_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.TxHash == "" {
		return sendError(c, fiber.StatusBadRequest, "BAD_REQUEST", "nonce and tx_hash required")
	}
	if err := s.store.markClaimed(token(c), req.Nonce, req.TxHash, req.ChainID); err != nil {
		return sendError(c, fiber.StatusNotFound, "NONCE_UNKNOWN", err.Error())
	}
	return sendSuccess(c, nil)
}

func (s *Server) handleProfile(c *fiber.Ctx) error {
	return sendSuccess(c, s.store.profile(token(c)))
}

func (s *Server) handleUpdateProfile(c *fiber.Ctx) error {
	var req struct {
		Nickname string `json:"nickname"`
	}
	if err := c.BodyParser(&req); err != nil || req.Nickname == "" {
		return sendError(c, fiber.StatusBadRequest, "BAD_REQUEST", "nickname required")
	}
	profile, err := s.store.updateNickname(token(c), req.Nickname)
	if err != nil {
		return sendError(c, fiber.StatusConflict, "NICKNAME_TAKEN", err.Error())
	}
	return sendSuccess(c, profile)
}

func (s *Server) handleNicknameAvailable(c *fiber.Ctx) error {
	nickname := c.Query("nickname")
	return sendSuccess(c, fiber.Map{"available": s.store.nicknameAvailable(nickname)})
}

func (s *Server) handleVerifyCode(c *fiber.Ctx) error {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return sendError(c, fiber.StatusBadRequest, "BAD_REQUEST", "malformed body")
	}
	return sendSuccess(c, fiber.Map{"valid": s.store.verifyCode(req.Code)})
}

func (s *Server) handleBindCode(c *fiber.Ctx) error {
	var req struct {
		Nickname string `json:"nickname"`
		Code     string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil || req.Code == "" {
		return sendError(c, fiber.StatusBadRequest, "BAD_REQUEST", "code required")
	}

	profile, err := s.store.bindCode(token(c), req.Nickname, req.Code)
	switch {
	case errors.Is(err, errCodeBound):
		return sendError(c, fiber.StatusConflict, api.ErrCodeReferralBound, err.Error())
	case errors.Is(err, errCodeLimit):
		return sendError(c, fiber.StatusConflict, api.ErrCodeReferralLimit, err.Error())
	case errors.Is(err, errUnknownCode):
		return sendError(c, fiber.StatusNotFound, api.ErrCodeUnknownCode, err.Error())
	case err != nil:
		return err
	}
	return sendSuccess(c, profile)
}

func (s *Server) handleInvitees(c *fiber.Ctx) error {
	return sendSuccess(c, fiber.Map{"invitees": s.store.invitees(token(c))})
}

func (s *Server) handleChains(c *fiber.Ctx) error {
	return sendSuccess(c, fiber.Map{"chains": []api.ChainParams{{
		ChainID:              devChainID,
		Name:                 "feelmint-dev",
		RewardContract:       "0x00000000000000000000000000000000000000A1",
		SubscriptionContract: "0x00000000000000000000000000000000000000A2",
		Stablecoin:           "0x00000000000000000000000000000000000000A3",
		StablecoinDecimals:   6,
		TokenAddress:         "0x00000000000000000000000000000000000000A4",
	}}})
}

func (s *Server) handleActivateTier(c *fiber.Ctx) error {
	var req struct {
		Tier    uint8  `json:"tier"`
		TxHash  string `json:"tx_hash"`
		ChainID uint64 `json:"chain_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.TxHash == "" {
		return sendError(c, fiber.StatusBadRequest, "BAD_REQUEST", "tier and tx_hash required")
	}
	tier, ok := pro.TierByIndex(req.Tier)
	if !ok {
		return sendError(c, fiber.StatusBadRequest, "TIER_UNKNOWN", "unknown tier")
	}
	return sendSuccess(c, s.store.activateTier(token(c), req.Tier, tier.DurationDays))
}
