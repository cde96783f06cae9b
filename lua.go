package rewind

const (
	luaPutSequenced = `
		-- Atomically save a snapshot only if its sequence is newer than stored
		-- KEYS[1] = snapshot value key
		-- KEYS[2] = snapshot sequence key
		-- ARGV[1] = snapshot data
		-- ARGV[2] = snapshot sequence
		-- Returns: 1 if saved, 0 if the stored sequence was newer

		local newSeq = tonumber(ARGV[2])
		local storedSeqStr = redis.call('GET', KEYS[2])

		if storedSeqStr then
			local storedSeq = tonumber(storedSeqStr)
			if newSeq <= storedSeq then
				return 0
			end
		end

		redis.call('SET', KEYS[1], ARGV[1])
		redis.call('SET', KEYS[2], ARGV[2])
		return 1
		`

	luaRemoveSnapshot = `
		-- Atomically remove a snapshot and its sequence
		-- KEYS[1] = snapshot value key
		-- KEYS[2] = snapshot sequence key

		return redis.call('DEL', KEYS[1], KEYS[2])
		`
)
