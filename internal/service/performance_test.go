package service

import (
	"testing"

	"calltracker/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformance(t *testing.T) {
	type args struct {
		entry   float64
		current float64
		action  model.Action
	}
	tests := []struct {
		name    string
		args    args
		want    float64
		wantNil bool
	}{
		{
			name: "buy gains when price rises",
			args: args{entry: 100, current: 110, action: model.ActionBuy},
			want: 10,
		},
		{
			name: "buy loses when price falls",
			args: args{entry: 100, current: 90, action: model.ActionBuy},
			want: -10,
		},
		{
			name: "sell gains when price falls",
			args: args{entry: 100, current: 90, action: model.ActionSell},
			want: 10,
		},
		{
			name: "sell loses when price rises",
			args: args{entry: 100, current: 110, action: model.ActionSell},
			want: -10,
		},
		{
			name: "flat price is zero either way",
			args: args{entry: 50, current: 50, action: model.ActionSell},
			want: 0,
		},
		{
			name: "btc long up ten percent",
			args: args{entry: 50000, current: 55000, action: model.ActionBuy},
			want: 10,
		},
		{
			name: "btc short down ten percent",
			args: args{entry: 50000, current: 45000, action: model.ActionSell},
			want: 10,
		},
		{
			name:    "zero entry yields nil not inf",
			args:    args{entry: 0, current: 10, action: model.ActionBuy},
			wantNil: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Performance(tt.args.entry, tt.args.current, tt.args.action)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, tt.want, *got, 1e-9)
		})
	}
}

func TestClassifyOutcome(t *testing.T) {
	tests := []struct {
		name        string
		performance float64
		threshold   float64
		want        Outcome
	}{
		{name: "above band is a win", performance: 0.06, threshold: 0.05, want: OutcomeWin},
		{name: "below band is a loss", performance: -0.06, threshold: 0.05, want: OutcomeLoss},
		{name: "at positive edge stays neutral", performance: 0.05, threshold: 0.05, want: OutcomeNeutral},
		{name: "at negative edge stays neutral", performance: -0.05, threshold: 0.05, want: OutcomeNeutral},
		{name: "zero is neutral", performance: 0, threshold: 0.05, want: OutcomeNeutral},
		{name: "zero threshold makes any gain a win", performance: 0.0001, threshold: 0, want: OutcomeWin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyOutcome(tt.performance, tt.threshold))
		})
	}
}
