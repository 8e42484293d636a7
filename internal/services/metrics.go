package services

import (
	"github.com/sindbad/engage/internal/model"
	"github.com/sindbad/engage/pkg/prom"
)

func observeDispatch(ch model.Channel, status OutcomeStatus) {
	prom.IncCounterVec(prom.SystemDispatch, prom.MetricDispatchOutcomes, string(ch), string(status))
}
