package api

import "github.com/redis/go-redis/v9"

// BidScript 用於檢查並墊高作品的下次最低出價
//  KEYS[1] - 藝術品的下次最低出價鍵
//  ARGV[1] - 競價金額
//  ARGV[2] - 鍵的過期時間(秒)
//  ARGV[3] - 出價成功後的加價金額
//
// 返回值:
//  1  - 競價成功
//  0  - 競價失敗(金額低於下次最低出價)
//  -1 - 下次最低出價鍵不存在
//
// NOTE: 腳本只負責閘門判斷，不寫入stream。
// 出價事件在資料庫交易成功後才發佈，
// 避免交易回滾時訂閱者收到不存在的出價。
//
// 流程:
//  - 1. 檢查鍵是否存在
//  - 2a. 如果不存在，返回-1
//  - 2b. 如果存在，檢查競價金額是否達到下次最低出價
//  - 3a. 如果未達到，返回0
//  - 3b. 如果達到，將下次最低出價墊高為競價金額加上加價金額
//  - 4. 返回1
var BidScript = redis.NewScript(`
-- 檢查鍵是否存在
local exists = redis.call('EXISTS', KEYS[1])
if exists == 0 then
    return -1
end

-- 取得下次最低出價
local min_next = tonumber(redis.call('GET', KEYS[1])) or 0
local new_bid = tonumber(ARGV[1])

-- 檢查新競價是否達到下次最低出價
if new_bid < min_next then
    return 0
end

-- 墊高下次最低出價
redis.call('SET', KEYS[1], new_bid + tonumber(ARGV[3]), 'EX', tonumber(ARGV[2]))

return 1
`)
