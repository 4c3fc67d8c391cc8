package game

// stageCommission computes the agent's post-play commission balance without
// mutating anything, so callers can abort on overflow with no partial update.
//
// When the house wins the agent accrues floor(loss*rate/100). When the player
// wins an existing positive balance is clawed back by floor(win*rate/100),
// floored at zero. A zero balance is never pushed negative, so house losses
// are not banked against future wins.
func stageCommission(current int64, rate uint8, totalBet, payout uint64) (int64, error) {
	if rate == 0 || payout == totalBet {
		return current, nil
	}
	if payout < totalBet {
		loss := totalBet - payout
		delta, err := mulDivFloor(loss, uint64(rate), 100)
		if err != nil {
			return 0, err
		}
		return checkedAddInt64(current, delta)
	}
	if current == 0 {
		return current, nil
	}
	win := payout - totalBet
	delta, err := mulDivFloor(win, uint64(rate), 100)
	if err != nil {
		return 0, err
	}
	if delta >= uint64(current) {
		return 0, nil
	}
	return current - int64(delta), nil
}
