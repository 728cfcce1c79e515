package broker

import "github.com/redis/go-redis/v9"

// LPUSH and EXPIRE run as one script: a reply list never exists without a TTL.
const scriptPushReply = `
redis.call('LPUSH', KEYS[1], ARGV[1])
redis.call('EXPIRE', KEYS[1], ARGV[2])
return 1
`

var pushReplyLua = redis.NewScript(scriptPushReply)
