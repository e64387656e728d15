package queue

import "github.com/redis/go-redis/v9"

// Every state transition runs as one script so a job is always in exactly one
// set, whatever happens to the client between commands.

// KEYS: job hash, sequence, waiting set
// ARGV: envelope, category, priority, priority weight, now ms, id
var addScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], 'data', ARGV[1]) == 0 then
	return 0
end
local seq = redis.call('INCR', KEYS[2])
local score = tonumber(ARGV[3]) * tonumber(ARGV[4]) + seq
redis.call('HSET', KEYS[1],
	'category', ARGV[2],
	'priority', ARGV[3],
	'score', score,
	'state', 'waiting',
	'attempts', 0,
	'progress', 0,
	'created_at', ARGV[5])
redis.call('ZADD', KEYS[3], score, ARGV[6])
return 1
`)

// KEYS: waiting set, delayed set, active set
// ARGV: now ms, promote batch, job key prefix
var dequeueScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
for _, id in ipairs(due) do
	redis.call('ZREM', KEYS[2], id)
	local score = redis.call('HGET', ARGV[3] .. id, 'score')
	if score then
		redis.call('ZADD', KEYS[1], score, id)
		redis.call('HSET', ARGV[3] .. id, 'state', 'waiting')
	end
end

local popped = redis.call('ZPOPMIN', KEYS[1])
if #popped == 0 then
	return false
end
local id = popped[1]
local key = ARGV[3] .. id
local data = redis.call('HGET', key, 'data')
if not data then
	return {id, 0}
end
redis.call('ZADD', KEYS[3], ARGV[1], id)
redis.call('HSET', key, 'state', 'active', 'started_at', ARGV[1])
local attempts = redis.call('HINCRBY', key, 'attempts', 1)
return {id, attempts, data}
`)

// KEYS: active set, waiting set
// ARGV: job key prefix
var recoverScript = redis.NewScript(`
local ids = redis.call('ZRANGE', KEYS[1], 0, -1)
local recovered = 0
for _, id in ipairs(ids) do
	redis.call('ZREM', KEYS[1], id)
	local score = redis.call('HGET', ARGV[1] .. id, 'score')
	if score then
		redis.call('ZADD', KEYS[2], score, id)
		redis.call('HSET', ARGV[1] .. id, 'state', 'waiting')
		recovered = recovered + 1
	end
end
return recovered
`)
