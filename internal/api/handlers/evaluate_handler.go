package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/medbot/backend/internal/evaluation"
	"github.com/medbot/backend/pkg/logger"
)

type EvaluateHandler struct {
	evaluator *evaluation.Evaluator
}

func NewEvaluateHandler(evaluator *evaluation.Evaluator) *EvaluateHandler {
	return &EvaluateHandler{evaluator: evaluator}
}

// HandleEvaluate runs a labeled dataset through the pipeline. The dataset
// comes inline in the request or from a file on the server.
func (h *EvaluateHandler) HandleEvaluate(c *fiber.Ctx) error {
	var req struct {
		DatasetPath string                   `json:"dataset_path"`
		Items       []evaluation.DatasetItem `json:"items"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	dataset := &evaluation.Dataset{Items: req.Items}
	if len(dataset.Items) == 0 && req.DatasetPath != "" {
		loaded, err := evaluation.LoadDataset(req.DatasetPath)
		if err != nil {
			logger.Error("Failed to load evaluation dataset", zap.Error(err))
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Failed to load dataset",
			})
		}
		dataset = loaded
	}

	if len(dataset.Items) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Dataset is empty: provide items or dataset_path",
		})
	}

	report, err := h.evaluator.Run(c.Context(), dataset)
	if err != nil {
		logger.Error("Evaluation run failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Evaluation failed",
		})
	}

	return c.JSON(fiber.Map{
		"report":  report,
		"summary": evaluation.Summary(report),
	})
}
