package modem_test

import (
	"errors"
	"slices"
	"testing"

	"go.uber.org/mock/gomock"
	"i4.energy/across/atrunner/modem"
)

func TestRunBatch(t *testing.T) {
	t.Run("Aborts at first exhausted command", func(t *testing.T) {
		tr := modem.NewTestTransport().
			Reply("ATI\r\r\nSIM7080 R1951.05\r\n\r\nOK\r\n").
			Reply("AT+CREG?\r\r\n+CREG: 0,2\r\n\r\nOK\r\n").
			Reply("AT+CREG?\r\r\n+CREG: 0,2\r\n\r\nOK\r\n").
			Reply("AT+CREG?\r\r\n+CREG: 0,2\r\n\r\nOK\r\n").
			Reply("OK\r\n")

		engine, sleeper := newTestEngine(t)
		err := engine.RunBatch(tr, []modem.CommandSpec{
			{Text: "ATI", RequireStatusOK: true, RequiredSubstring: "OK", MaxAttempts: 1},
			{Text: "AT+CREG?", RequireStatusOK: true, RequiredSubstring: "+CREG: 0,1", MaxAttempts: 3},
			{Text: "AT+CGDCONT?", RequireStatusOK: true, RequiredSubstring: "OK", MaxAttempts: 1},
		})

		if !errors.Is(err, modem.ErrRetryExhausted) {
			t.Fatalf("expected batch to abort with ErrRetryExhausted, got: %v", err)
		}
		want := []string{"ATI", "AT+CREG?", "AT+CREG?", "AT+CREG?"}
		if !slices.Equal(tr.Writes(), want) {
			t.Errorf("expected writes %q, got %q", want, tr.Writes())
		}
		if got := sleeper.count(testPacing); got != 1 {
			t.Errorf("expected 1 pacing delay before the failing command, got %d", got)
		}
	})

	t.Run("Runs every command in order", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockTransport := modem.NewMockTransport(ctrl)
		gomock.InOrder(NewMockSequence(mockTransport).
			Reply("AT+CFUN=0", "OK\r\n").
			Reply("AT+CFUN=1", "OK\r\n").
			CregRegistered().
			Build()...)

		engine, sleeper := newTestEngine(t)
		err := engine.RunBatch(mockTransport, []modem.CommandSpec{
			modem.Command("AT+CFUN=0"),
			modem.Command("AT+CFUN=1"),
			{Text: "AT+CREG?", RequireStatusOK: true, RequiredSubstring: "+CREG: 0,1", MaxAttempts: 5},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := sleeper.count(testPacing); got != 2 {
			t.Errorf("expected pacing only between commands (2), got %d", got)
		}
		if got := sleeper.count(testSettle); got != 3 {
			t.Errorf("expected one settle delay per send (3), got %d", got)
		}
	})

	t.Run("Transport error aborts", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockTransport := modem.NewMockTransport(ctrl)
		mockTransport.EXPECT().Write([]byte("ATI\r")).Return(0, errors.New("port gone"))

		engine, _ := newTestEngine(t)
		err := engine.RunBatch(mockTransport, []modem.CommandSpec{modem.Command("ATI"), modem.Command("AT")})
		if !errors.Is(err, modem.ErrTransport) {
			t.Errorf("expected ErrTransport, got: %v", err)
		}
	})

	t.Run("Empty batch", func(t *testing.T) {
		engine, sleeper := newTestEngine(t)
		if err := engine.RunBatch(modem.NewTestTransport(), nil); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(sleeper.sleeps) != 0 {
			t.Errorf("expected no waits, got %v", sleeper.sleeps)
		}
	})
}
